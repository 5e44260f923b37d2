package region

import (
	"iter"
	"math"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Cylinder цилиндр произвольной ориентации между центрами оснований base1 и base2
type Cylinder struct {
	world  world.Info
	base1  mgl64.Vec3
	base2  mgl64.Vec3
	axis   mgl64.Vec3 // единичный вектор base1 -> base2
	height float64
	radius float64
	box    Box
}

// NewCylinder создает цилиндр. Основания не должны совпадать.
func NewCylinder(w world.Info, base1, base2 mgl64.Vec3, radius float64) (*Cylinder, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	if err := checkFinite("base1", base1); err != nil {
		return nil, err
	}
	if err := checkFinite("base2", base2); err != nil {
		return nil, err
	}
	if err := checkPositive("radius", radius); err != nil {
		return nil, err
	}
	axis := base2.Sub(base1)
	height := axis.Len()
	if height == 0 {
		return nil, errs.Invalid("height", "cylinder bases coincide")
	}
	axis = axis.Mul(1 / height)

	lo := mgl64.Vec3{math.Min(base1.X(), base2.X()), math.Min(base1.Y(), base2.Y()), math.Min(base1.Z(), base2.Z())}
	hi := mgl64.Vec3{math.Max(base1.X(), base2.X()), math.Max(base1.Y(), base2.Y()), math.Max(base1.Z(), base2.Z())}
	r := mgl64.Vec3{radius, radius, radius}
	box := Box{Min: vec.FromFloor(lo.Sub(r)), Max: vec.FromCeil(hi.Add(r))}
	if axis.X() == 0 && axis.Z() == 0 {
		// Вертикальная ось: по Y цилиндр ограничен основаниями
		box.Min.Y = int(math.Floor(lo.Y()))
		box.Max.Y = int(math.Ceil(hi.Y()))
	}

	return &Cylinder{
		world:  w,
		base1:  base1,
		base2:  base2,
		axis:   axis,
		height: height,
		radius: radius,
		box:    box,
	}, nil
}

// Radius возвращает радиус
func (c *Cylinder) Radius() float64 { return c.radius }

// Height возвращает расстояние между основаниями
func (c *Cylinder) Height() float64 { return c.height }

func (c *Cylinder) Kind() Kind        { return KindCylinder }
func (c *Cylinder) World() world.Info { return c.world }
func (c *Cylinder) Bounds() Box       { return c.box }

func (c *Cylinder) Contains(cell vec.Vec3) bool {
	v := cell.Center().Sub(c.base1)
	proj := v.Dot(c.axis)
	if proj < 0 || proj > c.height {
		return false
	}
	perp := v.Sub(c.axis.Mul(proj))
	return perp.Dot(perp) <= c.radius*c.radius
}

func (c *Cylinder) VolumeEstimate() uint64 {
	return roundVolume(math.Pi * c.radius * c.radius * c.height)
}

func (c *Cylinder) Center() mgl64.Vec3        { return c.base1.Add(c.base2).Mul(0.5) }
func (c *Cylinder) Cells() iter.Seq[vec.Vec3] { return scan(c.world, c.box, c.Contains) }
