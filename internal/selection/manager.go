package selection

import (
	"sync"

	"github.com/annel0/worldedit/internal/region"
	"github.com/google/uuid"
)

// Manager хранит выделения акторов. Выделение создается при первом обращении.
type Manager struct {
	mu       sync.RWMutex
	builders map[uuid.UUID]*Builder
	hull     region.HullComputer
}

// NewManager создает менеджер; hc передается каждому выделению (nil = QuickHull)
func NewManager(hc region.HullComputer) *Manager {
	return &Manager{builders: make(map[uuid.UUID]*Builder), hull: hc}
}

// Get возвращает выделение актора, создавая его при необходимости
func (m *Manager) Get(actor uuid.UUID) *Builder {
	m.mu.RLock()
	b, ok := m.builders[actor]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.builders[actor]; ok {
		return b
	}
	b = NewBuilder(m.hull)
	m.builders[actor] = b
	return b
}

// Lookup возвращает выделение без создания
func (m *Manager) Lookup(actor uuid.UUID) (*Builder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.builders[actor]
	return b, ok
}

// Remove удаляет выделение актора. Уже выданные ссылки остаются рабочими.
func (m *Manager) Remove(actor uuid.UUID) {
	m.mu.Lock()
	delete(m.builders, actor)
	m.mu.Unlock()
}

// Len число хранимых выделений
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.builders)
}
