// Package selection накапливает точки выделения актора и пересчитывает по ним регион.
package selection

import (
	"math"
	"sync"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	defaultRadius = 5.0
	minRadius     = 0.5
)

type heightRange struct{ min, max int }

// Builder состояние выделения одного актора.
// Каждая мутация пересчитывает кэшированный регион; при нехватке или
// несогласованности точек регион равен nil, ошибки построения не пробрасываются.
type Builder struct {
	mu       sync.RWMutex
	shape    Shape
	world    world.Info
	points   []*world.Location
	override *heightRange
	active   region.Region
	hull     region.HullComputer
}

// NewBuilder создает пустое выделение формы Cuboid
func NewBuilder(hc region.HullComputer) *Builder {
	return &Builder{shape: Cuboid, hull: hc}
}

// Shape возвращает активную форму
func (b *Builder) Shape() Shape {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shape
}

// World возвращает мир выделения или nil
func (b *Builder) World() world.Info {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.world
}

// Region возвращает текущий регион или nil
func (b *Builder) Region() region.Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// Points возвращает копию списка точек; пропуски равны nil
func (b *Builder) Points() []*world.Location {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*world.Location, len(b.points))
	for i, p := range b.points {
		if p != nil {
			cp := *p
			out[i] = &cp
		}
	}
	return out
}

// SetShape меняет форму, обрезая лишние точки с начала списка, и сбрасывает вертикальный диапазон
func (b *Builder) SetShape(s Shape) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == b.shape {
		return
	}
	if n := len(b.points) - s.MaxPoints(); n > 0 {
		b.points = append([]*world.Location(nil), b.points[n:]...)
	}
	b.shape = s
	b.override = nil
	b.recompute()
}

// bindWorld переключает мир; при смене мира точки очищаются
func (b *Builder) bindWorld(w world.Info) error {
	if w == nil {
		return errs.Invalid("world", "location has no world")
	}
	if b.world != nil && !world.SameWorld(b.world, w) {
		b.points = nil
	}
	b.world = w
	return nil
}

// SetPoint записывает точку по индексу, дополняя список пропусками
func (b *Builder) SetPoint(index int, loc world.Location) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= b.shape.MaxPoints() {
		return errs.Invalid("index", "point index %d out of range [0, %d) for %s", index, b.shape.MaxPoints(), b.shape)
	}
	if err := b.bindWorld(loc.World); err != nil {
		return err
	}
	for len(b.points) <= index {
		b.points = append(b.points, nil)
	}
	b.points[index] = &loc
	b.recompute()
	return nil
}

// AddPoint добавляет точку. На максимуме самая старая точка вытесняется,
// кроме Polygon и Hull, которые отклоняют новые точки.
func (b *Builder) AddPoint(loc world.Location) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bindWorld(loc.World); err != nil {
		return err
	}
	rules := shapeRules[b.shape]
	if len(b.points) >= rules.max {
		if rules.refuse {
			return errs.Invalid("points", "%s already has the maximum of %d points", b.shape, rules.max)
		}
		b.points = append(b.points[:0:0], b.points[1:]...)
	}
	b.points = append(b.points, &loc)
	b.recompute()
	return nil
}

// RemoveLastPoint удаляет последнюю точку; false, если список пуст
func (b *Builder) RemoveLastPoint() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.points) == 0 {
		return false
	}
	b.points = b.points[:len(b.points)-1]
	b.recompute()
	return true
}

// SetHeightOverride задает явный вертикальный диапазон многоугольника
func (b *Builder) SetHeightOverride(minY, maxY int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shape != Polygon {
		return errs.Invalid("shape", "height override applies to polygon selections only")
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	b.override = &heightRange{min: minY, max: maxY}
	b.recompute()
	return nil
}

// ClearHeightOverride возвращает диапазон, вычисляемый по точкам
func (b *Builder) ClearHeightOverride() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.override = nil
	b.recompute()
}

// Clear удаляет все точки и регион
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = nil
	b.active = nil
}

// recompute вызывается под блокировкой
func (b *Builder) recompute() {
	b.active = nil
	if b.world == nil {
		return
	}
	need := b.shape.MinPoints()
	if len(b.points) < need {
		return
	}
	for i, p := range b.points {
		if p == nil {
			if i < need {
				return
			}
			continue
		}
		if !world.SameWorld(p.World, b.world) {
			return
		}
	}

	r, err := b.build()
	if err != nil {
		logging.Debug("selection: регион %s не построен: %v", b.shape, err)
		return
	}
	b.active = r
}

func (b *Builder) point(i int) (mgl64.Vec3, bool) {
	if i >= len(b.points) || b.points[i] == nil {
		return mgl64.Vec3{}, false
	}
	return b.points[i].Pos.Float(), true
}

func (b *Builder) present() []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(b.points))
	for _, p := range b.points {
		if p != nil {
			out = append(out, p.Pos)
		}
	}
	return out
}

func (b *Builder) build() (region.Region, error) {
	p0, _ := b.point(0)
	switch b.shape {
	case Cuboid:
		return region.NewCuboid(b.world, b.points[0].Pos, b.points[1].Pos)

	case Sphere:
		radius := defaultRadius
		if p1, ok := b.point(1); ok {
			radius = math.Max(minRadius, p1.Sub(p0).Len())
		}
		return region.NewSphere(b.world, p0, radius)

	case Cylinder:
		p1, _ := b.point(1)
		radius := defaultRadius
		if p2, ok := b.point(2); ok {
			radius = math.Max(minRadius, distanceToAxis(p0, p1, p2))
		}
		return region.NewCylinder(b.world, p0, p1, radius)

	case Ellipsoid:
		return region.NewEllipsoid(b.world, p0, b.ellipsoidRadii(p0))

	case Polygon:
		pts := b.present()
		if len(pts) < 3 {
			return nil, errs.Invalid("points", "polygon needs 3 points")
		}
		minY, maxY := pts[0].Y, pts[0].Y
		for _, p := range pts[1:] {
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		if b.override != nil {
			minY, maxY = b.override.min, b.override.max
		}
		return region.NewPolygon(b.world, pts, minY, maxY)

	case Hull:
		pts := b.present()
		centers := make([]mgl64.Vec3, len(pts))
		for i, p := range pts {
			centers[i] = p.Center()
		}
		return region.NewConvexHull(b.world, centers, b.hull)

	case Pyramid:
		p1, _ := b.point(1)
		apex, _ := b.point(2)
		return region.NewPyramid(b.world, p0, p1, apex)
	}
	return nil, errs.Invalid("shape", "unsupported shape %s", b.shape)
}

// ellipsoidRadii повторяет таблицу вывода полуосей по числу точек:
// 2 точки задают все три оси, 3-я точка задает Y и при ровно трех точках Z=X,
// 4-я точка задает Z.
func (b *Builder) ellipsoidRadii(center mgl64.Vec3) mgl64.Vec3 {
	rx, ry, rz := defaultRadius, defaultRadius, defaultRadius
	n := len(b.points)
	if p1, ok := b.point(1); ok {
		rx = math.Max(minRadius, math.Abs(center.X()-p1.X()))
		if n == 2 {
			ry = math.Max(minRadius, math.Abs(center.Y()-p1.Y()))
			rz = math.Max(minRadius, math.Abs(center.Z()-p1.Z()))
		}
	}
	if p2, ok := b.point(2); ok {
		ry = math.Max(minRadius, math.Abs(center.Y()-p2.Y()))
		if n == 3 {
			rz = rx
		}
	}
	if p3, ok := b.point(3); ok {
		rz = math.Max(minRadius, math.Abs(center.Z()-p3.Z()))
	}
	return mgl64.Vec3{rx, ry, rz}
}

// distanceToAxis расстояние от p до прямой base1-base2; для вырожденной оси до base1
func distanceToAxis(base1, base2, p mgl64.Vec3) float64 {
	axis := base2.Sub(base1)
	v := p.Sub(base1)
	if axis.Dot(axis) < 0.0001 {
		return v.Len()
	}
	axis = axis.Normalize()
	return v.Sub(axis.Mul(v.Dot(axis))).Len()
}
