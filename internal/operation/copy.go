package operation

import (
	"context"
	"fmt"

	"github.com/annel0/worldedit/internal/clipboard"
	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/google/uuid"
)

// Copy снимает содержимое области в буфер актора. Мир не меняется,
// результат всегда пустой набор изменений.
type Copy struct {
	base
	clips    *clipboard.Manager
	position vec.Vec3
	cut      bool
}

// NewCopy создает копирование. position положение актора: от него считается
// точка привязки при вставке.
func NewCopy(actor uuid.UUID, store world.Store, r region.Region, position vec.Vec3, clips *clipboard.Manager) (*Copy, error) {
	if actor == uuid.Nil {
		return nil, errs.Invalid("actor", "copy requires an actor")
	}
	if clips == nil {
		return nil, errs.Invalid("clipboard", "clipboard manager is required")
	}
	b, err := newBase(actor, store, r)
	if err != nil {
		return nil, err
	}
	return &Copy{base: b, clips: clips, position: position}, nil
}

// ForCut помечает копирование как первую половину вырезания
func (c *Copy) ForCut() *Copy {
	c.cut = true
	return c
}

func (c *Copy) Kind() string { return "copy" }

func (c *Copy) Name() string {
	if c.cut {
		return fmt.Sprintf("Cut (%s)", c.region.Kind())
	}
	return fmt.Sprintf("Copy (%s)", c.region.Kind())
}

func (c *Copy) Execute(ctx context.Context) (*history.ChangeSet, error) {
	box := c.region.Bounds()
	buf, err := clipboard.New(c.store, box.Size(), c.position.Sub(box.Min))
	if err != nil {
		return nil, err
	}

	err = c.store.RunExclusive(ctx, func() error {
		for cell := range c.region.Cells() {
			d, err := c.store.Cell(cell)
			if err != nil {
				return fmt.Errorf("copy %s: %w", cell, err)
			}
			if err := buf.Put(cell.Sub(box.Min), d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.clips.Put(c.actor, buf)
	return history.NewChangeSet(c.store, c.Name()), nil
}
