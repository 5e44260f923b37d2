package clipboard

import (
	"sync"

	"github.com/google/uuid"
)

// Manager хранит по одному буферу на актора
type Manager struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]*Clipboard
}

func NewManager() *Manager {
	return &Manager{slots: make(map[uuid.UUID]*Clipboard)}
}

// Put заменяет буфер актора
func (m *Manager) Put(actor uuid.UUID, c *Clipboard) {
	m.mu.Lock()
	m.slots[actor] = c
	m.mu.Unlock()
}

// Get возвращает буфер актора
func (m *Manager) Get(actor uuid.UUID) (*Clipboard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.slots[actor]
	return c, ok
}

// Remove очищает буфер актора
func (m *Manager) Remove(actor uuid.UUID) {
	m.mu.Lock()
	delete(m.slots, actor)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}
