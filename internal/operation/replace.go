package operation

import (
	"context"
	"fmt"
	"math"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/pattern"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// DefaultNearMaxRadius предельный радиус замены вокруг актора
const DefaultNearMaxRadius = 64.0

// Replace заменяет ячейки, подходящие под маску, значениями из шаблона.
// В режиме near дополнительно отсекаются ячейки, чей центр дальше radius от center.
type Replace struct {
	base
	mask    *pattern.Mask
	pattern *pattern.Pattern
	src     pattern.Source

	near     bool
	center   mgl64.Vec3
	radius   float64
	radiusSq float64
}

// NewReplace создает замену внутри области r
func NewReplace(actor uuid.UUID, store world.Store, r region.Region, m *pattern.Mask, p *pattern.Pattern) (*Replace, error) {
	b, err := newBase(actor, store, r)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.Invalid("mask", "mask is required")
	}
	if p == nil {
		return nil, errs.Invalid("pattern", "pattern is required")
	}
	return &Replace{base: b, mask: m, pattern: p}, nil
}

// NewReplaceNear создает замену в шаре радиуса radius вокруг center.
// Радиус должен лежать в (0, maxRadius]; maxRadius <= 0 означает DefaultNearMaxRadius.
func NewReplaceNear(actor uuid.UUID, store world.Store, center mgl64.Vec3, radius, maxRadius float64, m *pattern.Mask, p *pattern.Pattern) (*Replace, error) {
	if maxRadius <= 0 {
		maxRadius = DefaultNearMaxRadius
	}
	if math.IsNaN(radius) || radius <= 0 || radius > maxRadius {
		return nil, errs.Invalid("radius", "radius must be > 0 and <= %g", maxRadius)
	}
	if store == nil {
		return nil, errs.Invalid("world", "world is required")
	}

	ext := math.Ceil(radius)
	lo := vec.FromFloor(center.Sub(mgl64.Vec3{ext, ext, ext}))
	hi := vec.FromFloor(center.Add(mgl64.Vec3{ext, ext, ext}))
	box, err := region.NewCuboid(store, lo, hi)
	if err != nil {
		return nil, err
	}

	rep, err := NewReplace(actor, store, box, m, p)
	if err != nil {
		return nil, err
	}
	rep.near = true
	rep.center = center
	rep.radius = radius
	rep.radiusSq = radius * radius
	return rep, nil
}

// WithSource задает источник случайных чисел для выбора из шаблона
func (r *Replace) WithSource(src pattern.Source) *Replace {
	r.src = src
	return r
}

func (r *Replace) Kind() string { return "replace" }

func (r *Replace) Name() string {
	where := "in " + r.region.Kind().String()
	if r.near {
		where = fmt.Sprintf("near (r=%g)", r.radius)
	}
	return fmt.Sprintf("Replace %s with %s %s", abbreviate(r.mask.String(), 15), abbreviate(r.pattern.String(), 15), where)
}

func (r *Replace) EstimatedCells() uint64 {
	if r.near {
		return uint64(4.0 / 3.0 * math.Pi * r.radius * r.radius * r.radius)
	}
	return r.base.EstimatedCells()
}

func (r *Replace) Execute(ctx context.Context) (*history.ChangeSet, error) {
	cs := history.NewChangeSet(r.store, r.Name())
	err := r.store.RunExclusive(ctx, func() error {
		for cell := range r.region.Cells() {
			if r.near && cell.Center().Sub(r.center).LenSqr() > r.radiusSq {
				continue
			}
			old, err := r.store.Cell(cell)
			if err != nil {
				return fmt.Errorf("replace %s: %w", cell, err)
			}
			if !r.mask.Matches(old) {
				continue
			}
			if err := apply(r.store, cs, cell, old, r.pattern.Sample(r.src)); err != nil {
				return fmt.Errorf("replace %s: %w", cell, err)
			}
		}
		return nil
	})
	return cs, err
}
