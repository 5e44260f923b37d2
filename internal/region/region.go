// Package region реализует объемные формы выделения: проверку принадлежности
// ячейки, ограничивающий параллелепипед, оценку объема и ленивый обход ячеек.
//
// Contains единственный источник истины о принадлежности ячейки. Обход
// идет по ограничивающему параллелепипеду (Z внешний, затем Y в границах мира,
// затем X) и отдает только ячейки, для которых Contains истинно.
package region

import (
	"fmt"
	"iter"
	"math"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Kind тег варианта формы
type Kind int

const (
	KindCuboid Kind = iota
	KindSphere
	KindCylinder
	KindEllipsoid
	KindPolygon
	KindConvexHull
	KindPyramid
)

func (k Kind) String() string {
	switch k {
	case KindCuboid:
		return "cuboid"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindEllipsoid:
		return "ellipsoid"
	case KindPolygon:
		return "polygon"
	case KindConvexHull:
		return "hull"
	case KindPyramid:
		return "pyramid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// planeEpsilon допуск для полупространств многогранников
const planeEpsilon = 0.001

// Region общий контракт всех форм. Значения неизменяемы после создания.
type Region interface {
	Kind() Kind
	World() world.Info
	// Bounds целочисленный параллелепипед, содержащий все ячейки формы
	Bounds() Box
	Contains(cell vec.Vec3) bool
	// VolumeEstimate аналитическая оценка объема для индикации прогресса
	VolumeEstimate() uint64
	Center() mgl64.Vec3
	// Cells каждый вызов возвращает новую независимую последовательность
	Cells() iter.Seq[vec.Vec3]
}

// Box целочисленный параллелепипед с включительными границами
type Box struct {
	Min, Max vec.Vec3
}

// NewBox строит Box по двум произвольным углам
func NewBox(a, b vec.Vec3) Box {
	return Box{Min: a.Min(b), Max: a.Max(b)}
}

// Contains проверяет попадание ячейки в параллелепипед
func (b Box) Contains(c vec.Vec3) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Size возвращает число ячеек по каждой оси
func (b Box) Size() vec.Vec3 {
	return vec.Vec3{X: b.Max.X - b.Min.X + 1, Y: b.Max.Y - b.Min.Y + 1, Z: b.Max.Z - b.Min.Z + 1}
}

// Volume возвращает число ячеек в параллелепипеде
func (b Box) Volume() uint64 {
	s := b.Size()
	return uint64(s.X) * uint64(s.Y) * uint64(s.Z)
}

// Center геометрический центр покрытых ячеек
func (b Box) Center() mgl64.Vec3 {
	return mgl64.Vec3{
		float64(b.Min.X+b.Max.X+1) / 2,
		float64(b.Min.Y+b.Max.Y+1) / 2,
		float64(b.Min.Z+b.Max.Z+1) / 2,
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%s..%s]", b.Min, b.Max)
}

// scan обходит параллелепипед в порядке Z, Y, X, ограничивая Y границами мира
func scan(w world.Info, box Box, contains func(vec.Vec3) bool) iter.Seq[vec.Vec3] {
	return func(yield func(vec.Vec3) bool) {
		minY := max(box.Min.Y, w.MinHeight())
		maxY := min(box.Max.Y, w.MaxHeight()-1)
		for z := box.Min.Z; z <= box.Max.Z; z++ {
			for y := minY; y <= maxY; y++ {
				for x := box.Min.X; x <= box.Max.X; x++ {
					c := vec.Vec3{X: x, Y: y, Z: z}
					if contains(c) && !yield(c) {
						return
					}
				}
			}
		}
	}
}

// Count обходит форму и возвращает точное число ячеек
func Count(r Region) int {
	n := 0
	for range r.Cells() {
		n++
	}
	return n
}

func checkWorld(w world.Info) error {
	if w == nil {
		return errs.Invalid("world", "world is required")
	}
	if w.MaxHeight() <= w.MinHeight() {
		return errs.Invalid("world", "empty height range [%d, %d)", w.MinHeight(), w.MaxHeight())
	}
	return nil
}

func checkPositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errs.Invalid(field, "must be positive, got %v", v)
	}
	return nil
}

func checkFinite(field string, p mgl64.Vec3) error {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errs.Invalid(field, "non-finite coordinate in %v", p)
		}
	}
	return nil
}

func roundVolume(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(math.Round(v))
}

// floatBox ограничивающий параллелепипед набора точек
type floatBox struct {
	min, max mgl64.Vec3
}

func boundsOf(points []mgl64.Vec3) floatBox {
	fb := floatBox{min: points[0], max: points[0]}
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			fb.min[i] = math.Min(fb.min[i], p[i])
			fb.max[i] = math.Max(fb.max[i], p[i])
		}
	}
	return fb
}

func (fb floatBox) contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < fb.min[i] || p[i] > fb.max[i] {
			return false
		}
	}
	return true
}

// cells ячейки, центры которых могут лежать внутри параллелепипеда
func (fb floatBox) cells() Box {
	return Box{Min: vec.FromFloor(fb.min), Max: vec.FromFloor(fb.max)}
}

func (fb floatBox) volume() float64 {
	d := fb.max.Sub(fb.min)
	return d.X() * d.Y() * d.Z()
}

func (fb floatBox) center() mgl64.Vec3 {
	return fb.min.Add(fb.max).Mul(0.5)
}
