// Package session связывает состояние актора (выделение, буфер, история)
// и удаляет его при отключении.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/annel0/worldedit/internal/clipboard"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/selection"
	"github.com/google/uuid"
)

// Registry общий реестр состояний акторов процесса.
// Все три хранилища создают записи лениво при первом обращении.
type Registry struct {
	Selections *selection.Manager
	Clipboards *clipboard.Manager
	History    *history.Manager

	mu           sync.RWMutex
	lastSeen     map[uuid.UUID]time.Time
	onDisconnect []func(uuid.UUID)
}

// NewRegistry собирает реестр из готовых менеджеров
func NewRegistry(sel *selection.Manager, clips *clipboard.Manager, hist *history.Manager) *Registry {
	return &Registry{
		Selections: sel,
		Clipboards: clips,
		History:    hist,
		lastSeen:   make(map[uuid.UUID]time.Time),
	}
}

// OnDisconnect регистрирует дополнительную очистку при отключении актора
func (r *Registry) OnDisconnect(fn func(uuid.UUID)) {
	r.mu.Lock()
	r.onDisconnect = append(r.onDisconnect, fn)
	r.mu.Unlock()
}

// Touch отмечает активность актора
func (r *Registry) Touch(actor uuid.UUID) {
	if actor == uuid.Nil {
		return
	}
	r.mu.Lock()
	r.lastSeen[actor] = time.Now()
	r.mu.Unlock()
}

// Disconnect удаляет выделение, буфер и историю актора.
// Выполняющиеся правки актора продолжают работу со своими ссылками.
func (r *Registry) Disconnect(actor uuid.UUID) {
	r.mu.Lock()
	delete(r.lastSeen, actor)
	hooks := append(([]func(uuid.UUID))(nil), r.onDisconnect...)
	r.mu.Unlock()

	r.Selections.Remove(actor)
	r.Clipboards.Remove(actor)
	r.History.Remove(actor)
	for _, fn := range hooks {
		fn(actor)
	}
	logging.Debug("session: актор %s отключен, состояние очищено", actor)
}

// Actors акторы, известные реестру, в порядке строкового представления
func (r *Registry) Actors() []uuid.UUID {
	r.mu.RLock()
	out := make([]uuid.UUID, 0, len(r.lastSeen))
	for id := range r.lastSeen {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Summary сводка состояния актора для статуса
type Summary struct {
	Actor        uuid.UUID `json:"actor"`
	LastSeen     time.Time `json:"last_seen"`
	Shape        string    `json:"shape"`
	World        string    `json:"world,omitempty"`
	Points       int       `json:"points"`
	Region       string    `json:"region,omitempty"`
	Bounds       string    `json:"bounds,omitempty"`
	Volume       uint64    `json:"volume_estimate"`
	HasClipboard bool      `json:"has_clipboard"`
	UndoDepth    int       `json:"undo_depth"`
	RedoDepth    int       `json:"redo_depth"`
}

// Describe возвращает сводку; false, если актор неизвестен
func (r *Registry) Describe(actor uuid.UUID) (Summary, bool) {
	r.mu.RLock()
	seen, ok := r.lastSeen[actor]
	r.mu.RUnlock()
	if !ok {
		return Summary{}, false
	}

	s := Summary{Actor: actor, LastSeen: seen, Shape: selection.Cuboid.String()}
	if b, ok := r.Selections.Lookup(actor); ok {
		s.Shape = b.Shape().String()
		if w := b.World(); w != nil {
			s.World = w.Name()
		}
		for _, p := range b.Points() {
			if p != nil {
				s.Points++
			}
		}
		if reg := b.Region(); reg != nil {
			s.Region = reg.Kind().String()
			s.Bounds = reg.Bounds().String()
			s.Volume = reg.VolumeEstimate()
		}
	}
	_, s.HasClipboard = r.Clipboards.Get(actor)
	s.UndoDepth, s.RedoDepth = r.History.Depth(actor)
	return s, true
}

// ActiveRegion текущий регион выделения актора или nil
func (r *Registry) ActiveRegion(actor uuid.UUID) region.Region {
	if b, ok := r.Selections.Lookup(actor); ok {
		return b.Region()
	}
	return nil
}
