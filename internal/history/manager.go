package history

import (
	"context"
	"strings"
	"sync"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/notify"
	"github.com/google/uuid"
)

// DefaultCapacity емкость стеков по умолчанию
const DefaultCapacity = 50

// actorHistory стеки одного актора
type actorHistory struct {
	mu   sync.Mutex
	undo boundedStack
	redo boundedStack
}

// Manager хранит стеки undo/redo всех акторов.
// Блокировка карты берется кратко, операции над стеками одного актора
// не блокируют других акторов, а воспроизведение идет без блокировок.
type Manager struct {
	mu       sync.RWMutex
	actors   map[uuid.UUID]*actorHistory
	capacity int
	notifier notify.Notifier
}

// NewManager создает менеджер с емкостью стеков capacity (<=0 означает DefaultCapacity)
func NewManager(capacity int, n notify.Notifier) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		actors:   make(map[uuid.UUID]*actorHistory),
		capacity: capacity,
		notifier: n,
	}
}

// Capacity емкость каждого стека
func (m *Manager) Capacity() int { return m.capacity }

func (m *Manager) get(actor uuid.UUID) *actorHistory {
	m.mu.RLock()
	h, ok := m.actors[actor]
	m.mu.RUnlock()
	if ok {
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.actors[actor]; ok {
		return h
	}
	h = &actorHistory{undo: newBoundedStack(m.capacity), redo: newBoundedStack(m.capacity)}
	m.actors[actor] = h
	return h
}

func (m *Manager) lookup(actor uuid.UUID) (*actorHistory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.actors[actor]
	return h, ok
}

// Record кладет набор на стек undo и очищает redo. Пустые наборы игнорируются.
func (m *Manager) Record(actor uuid.UUID, cs *ChangeSet) {
	if actor == uuid.Nil || cs == nil || cs.Empty() {
		return
	}
	cs.Freeze()
	h := m.get(actor)
	h.mu.Lock()
	if evicted := h.undo.push(cs); evicted != nil {
		logging.Debug("history: актор %s, вытеснен набор %s (%d изменений)", actor, evicted.ID(), evicted.Len())
	}
	h.redo.clear()
	h.mu.Unlock()
}

// Undo откатывает последний набор актора. Пустой стек дает errs.ErrNothingToUndo.
// При сбое воспроизведения частичный результат остается в мире, а набор не переносится в redo.
func (m *Manager) Undo(ctx context.Context, actor uuid.UUID) (*ChangeSet, error) {
	return m.step(ctx, actor, true)
}

// Redo повторяет последний откатанный набор актора
func (m *Manager) Redo(ctx context.Context, actor uuid.UUID) (*ChangeSet, error) {
	return m.step(ctx, actor, false)
}

func (m *Manager) step(ctx context.Context, actor uuid.UUID, undo bool) (*ChangeSet, error) {
	name, noop := "redo", errs.ErrNothingToRedo
	if undo {
		name, noop = "undo", errs.ErrNothingToUndo
	}

	h, ok := m.lookup(actor)
	if !ok {
		notify.Notifyf(m.notifier, actor, notify.LevelInfo, "Nothing to %s.", name)
		return nil, noop
	}

	h.mu.Lock()
	var (
		cs    *ChangeSet
		found bool
	)
	if undo {
		cs, found = h.undo.pop()
	} else {
		cs, found = h.redo.pop()
	}
	h.mu.Unlock()
	if !found {
		notify.Notifyf(m.notifier, actor, notify.LevelInfo, "Nothing to %s.", name)
		return nil, noop
	}

	var (
		applied int
		err     error
	)
	if undo {
		applied, err = cs.Undo(ctx)
	} else {
		applied, err = cs.Redo(ctx)
	}
	if err != nil {
		logging.Error("history: %s набора %s для %s прерван после %d из %d изменений: %v", name, cs.ID(), actor, applied, cs.Len(), err)
		notify.Notifyf(m.notifier, actor, notify.LevelError, "Error during %s: %v", name, err)
		return cs, &errs.ExecutionError{Operation: name, Err: err}
	}

	h.mu.Lock()
	if undo {
		h.redo.push(cs)
	} else {
		h.undo.push(cs)
	}
	h.mu.Unlock()

	notify.Notifyf(m.notifier, actor, notify.LevelInfo, "%s successful (%d changes).", capitalize(name), applied)
	return cs, nil
}

// Depth возвращает глубину стеков undo и redo
func (m *Manager) Depth(actor uuid.UUID) (undo, redo int) {
	h, ok := m.lookup(actor)
	if !ok {
		return 0, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.undo.len(), h.redo.len()
}

// UndoStack копия стека undo от старого к новому
func (m *Manager) UndoStack(actor uuid.UUID) []*ChangeSet {
	h, ok := m.lookup(actor)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.undo.snapshot()
}

// Clear очищает оба стека актора
func (m *Manager) Clear(actor uuid.UUID) {
	h, ok := m.lookup(actor)
	if !ok {
		return
	}
	h.mu.Lock()
	h.undo.clear()
	h.redo.clear()
	h.mu.Unlock()
}

// Remove удаляет историю актора. Выполняющиеся undo/redo завершаются на отсоединенных стеках.
func (m *Manager) Remove(actor uuid.UUID) {
	m.mu.Lock()
	delete(m.actors, actor)
	m.mu.Unlock()
}

// Len число акторов с историей
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
