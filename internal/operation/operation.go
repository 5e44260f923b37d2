// Package operation содержит пакетные правки мира: заполнение, замену по маске,
// копирование и вставку. Каждая правка выполняется внутри RunExclusive своего мира
// и возвращает набор изменений для истории.
package operation

import (
	"context"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
)

// Operation единица работы движка задач.
//
// Execute вызывается не более одного раза. При ошибке возвращенный набор содержит
// изменения, успевшие попасть в мир до сбоя; в историю он не записывается.
type Operation interface {
	// Kind короткий тип правки для меток метрик: set, replace, copy, paste
	Kind() string
	// Name человекочитаемое описание
	Name() string
	// Actor владелец правки; uuid.Nil для консоли
	Actor() uuid.UUID
	Region() region.Region
	EstimatedCells() uint64
	Execute(ctx context.Context) (*history.ChangeSet, error)
}

// base общие поля правок
type base struct {
	actor  uuid.UUID
	store  world.Store
	region region.Region
}

func (b *base) Actor() uuid.UUID       { return b.actor }
func (b *base) Region() region.Region  { return b.region }
func (b *base) EstimatedCells() uint64 { return b.region.VolumeEstimate() }

func newBase(actor uuid.UUID, store world.Store, r region.Region) (base, error) {
	if store == nil {
		return base{}, errs.Invalid("world", "world is required")
	}
	if r == nil {
		return base{}, errs.Invalid("region", "region is required")
	}
	if !world.SameWorld(store, r.World()) {
		return base{}, errs.Invalid("region", "region belongs to world %q, edit targets %q", r.World().Name(), store.Name())
	}
	return base{actor: actor, store: store, region: r}, nil
}

// put записывает дескриптор, если он отличается от текущего.
// Вызывается только внутри RunExclusive.
func put(store world.Store, cs *history.ChangeSet, pos vec.Vec3, d block.Descriptor) error {
	old, err := store.Cell(pos)
	if err != nil {
		return err
	}
	return apply(store, cs, pos, old, d)
}

// apply то же, что put, для уже прочитанного старого значения
func apply(store world.Store, cs *history.ChangeSet, pos vec.Vec3, old, d block.Descriptor) error {
	if old == d {
		return nil
	}
	if err := store.SetCell(pos, d, false); err != nil {
		return err
	}
	return cs.Record(pos, old, d)
}

func abbreviate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
