package operation

import (
	"context"
	"fmt"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/pattern"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/world"
	"github.com/google/uuid"
)

// Set заполняет каждую ячейку области дескриптором, выбранным по шаблону
type Set struct {
	base
	pattern *pattern.Pattern
	src     pattern.Source
}

// NewSet создает заполнение области r мира store
func NewSet(actor uuid.UUID, store world.Store, r region.Region, p *pattern.Pattern) (*Set, error) {
	b, err := newBase(actor, store, r)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.Invalid("pattern", "pattern is required")
	}
	return &Set{base: b, pattern: p}, nil
}

// WithSource задает источник случайных чисел для выбора из шаблона
func (s *Set) WithSource(src pattern.Source) *Set {
	s.src = src
	return s
}

func (s *Set) Kind() string { return "set" }

func (s *Set) Name() string {
	return fmt.Sprintf("Set %s to %s", s.region.Kind(), abbreviate(s.pattern.String(), 30))
}

func (s *Set) Execute(ctx context.Context) (*history.ChangeSet, error) {
	cs := history.NewChangeSet(s.store, s.Name())
	err := s.store.RunExclusive(ctx, func() error {
		for cell := range s.region.Cells() {
			if err := put(s.store, cs, cell, s.pattern.Sample(s.src)); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
		return nil
	})
	return cs, err
}
