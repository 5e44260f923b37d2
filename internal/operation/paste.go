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

// Paste переносит буфер в мир так, чтобы точка привязки буфера совпала с origin.
// Отсутствующие ячейки, ячейки вне высоты мира и уже совпадающие ячейки пропускаются;
// воздух вставляется только при pasteAir.
type Paste struct {
	base
	clip     *clipboard.Clipboard
	start    vec.Vec3
	pasteAir bool
}

// NewPaste создает вставку буфера clip в мир store
func NewPaste(actor uuid.UUID, store world.Store, clip *clipboard.Clipboard, origin vec.Vec3, pasteAir bool) (*Paste, error) {
	if clip == nil {
		return nil, errs.Invalid("clipboard", "clipboard is empty")
	}
	if store == nil {
		return nil, errs.Invalid("world", "world is required")
	}
	start := origin.Sub(clip.Origin())
	end := start.Add(clip.Size()).Sub(vec.Vec3{X: 1, Y: 1, Z: 1})
	target, err := region.NewCuboid(store, start, end)
	if err != nil {
		return nil, err
	}
	b, err := newBase(actor, store, target)
	if err != nil {
		return nil, err
	}
	return &Paste{base: b, clip: clip, start: start, pasteAir: pasteAir}, nil
}

func (p *Paste) Kind() string           { return "paste" }
func (p *Paste) Name() string           { return "Paste clipboard" }
func (p *Paste) EstimatedCells() uint64 { return p.clip.Volume() }

func (p *Paste) Execute(ctx context.Context) (*history.ChangeSet, error) {
	cs := history.NewChangeSet(p.store, p.Name())
	err := p.store.RunExclusive(ctx, func() error {
		for rel, d := range p.clip.Cells() {
			if !p.pasteAir && d.IsAir() {
				continue
			}
			pos := p.start.Add(rel)
			if !world.InHeight(p.store, pos.Y) {
				continue
			}
			if err := put(p.store, cs, pos, d); err != nil {
				return fmt.Errorf("paste %s: %w", pos, err)
			}
		}
		return nil
	})
	return cs, err
}
