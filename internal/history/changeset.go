// Package history хранит изменения ячеек и per-actor стеки undo/redo.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
)

// ErrFrozen запись в уже зафиксированный набор изменений
var ErrFrozen = errors.New("change set is frozen")

// Change изменение одной ячейки
type Change struct {
	Pos vec.Vec3
	Old block.Descriptor
	New block.Descriptor
}

// ChangeSet упорядоченный набор изменений одной правки.
// Пополняется только до Freeze, после чего неизменяем.
type ChangeSet struct {
	mu        sync.Mutex
	id        uuid.UUID
	label     string
	world     world.Store
	changes   []Change
	frozen    bool
	createdAt time.Time
}

// NewChangeSet создает пустой набор изменений для мира w
func NewChangeSet(w world.Store, label string) *ChangeSet {
	return &ChangeSet{id: uuid.New(), label: label, world: w, createdAt: time.Now()}
}

func (cs *ChangeSet) ID() uuid.UUID        { return cs.id }
func (cs *ChangeSet) Label() string        { return cs.label }
func (cs *ChangeSet) World() world.Store   { return cs.world }
func (cs *ChangeSet) CreatedAt() time.Time { return cs.createdAt }

// Record добавляет изменение
func (cs *ChangeSet) Record(pos vec.Vec3, old, new block.Descriptor) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.frozen {
		return ErrFrozen
	}
	cs.changes = append(cs.changes, Change{Pos: pos, Old: old, New: new})
	return nil
}

// Freeze запрещает дальнейшие записи
func (cs *ChangeSet) Freeze() {
	cs.mu.Lock()
	cs.frozen = true
	cs.mu.Unlock()
}

// Frozen сообщает, зафиксирован ли набор
func (cs *ChangeSet) Frozen() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.frozen
}

// Len число изменений
func (cs *ChangeSet) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.changes)
}

// Empty сообщает об отсутствии изменений
func (cs *ChangeSet) Empty() bool { return cs.Len() == 0 }

// Changes возвращает копию изменений в порядке записи
func (cs *ChangeSet) Changes() []Change {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]Change(nil), cs.changes...)
}

// Head возвращает копию первых n изменений
func (cs *ChangeSet) Head(n int) []Change {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n = max(0, min(n, len(cs.changes)))
	return append([]Change(nil), cs.changes[:n]...)
}

// Undo записывает старые дескрипторы в обратном порядке.
// Возвращает число примененных изменений; при ошибке уже записанное не откатывается.
func (cs *ChangeSet) Undo(ctx context.Context) (int, error) {
	changes := cs.frozenChanges()
	return cs.replay(ctx, len(changes), func(i int) (vec.Vec3, block.Descriptor) {
		c := changes[len(changes)-1-i]
		return c.Pos, c.Old
	})
}

// Redo записывает новые дескрипторы в исходном порядке
func (cs *ChangeSet) Redo(ctx context.Context) (int, error) {
	changes := cs.frozenChanges()
	return cs.replay(ctx, len(changes), func(i int) (vec.Vec3, block.Descriptor) {
		c := changes[i]
		return c.Pos, c.New
	})
}

func (cs *ChangeSet) frozenChanges() []Change {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.frozen = true
	return cs.changes
}

func (cs *ChangeSet) replay(ctx context.Context, n int, at func(i int) (vec.Vec3, block.Descriptor)) (int, error) {
	if cs.world == nil {
		return 0, fmt.Errorf("change set %s has no world", cs.id)
	}
	applied := 0
	err := cs.world.RunExclusive(ctx, func() error {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			pos, d := at(i)
			if err := cs.world.SetCell(pos, d, false); err != nil {
				return fmt.Errorf("replay %s at %s: %w", cs.label, pos, err)
			}
			applied++
		}
		return nil
	})
	return applied, err
}
