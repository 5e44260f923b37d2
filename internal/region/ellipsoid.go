package region

import (
	"iter"
	"math"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// ellipsoidEpsilon допуск, включающий ячейки на самой границе
const ellipsoidEpsilon = 1.0001

// Ellipsoid эллипсоид, выровненный по осям
type Ellipsoid struct {
	world  world.Info
	center mgl64.Vec3
	radii  mgl64.Vec3
	box    Box
}

// NewEllipsoid создает эллипсоид с полуосями radii (все > 0)
func NewEllipsoid(w world.Info, center, radii mgl64.Vec3) (*Ellipsoid, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	if err := checkFinite("center", center); err != nil {
		return nil, err
	}
	for i, name := range []string{"radiusX", "radiusY", "radiusZ"} {
		if err := checkPositive(name, radii[i]); err != nil {
			return nil, err
		}
	}
	return &Ellipsoid{
		world:  w,
		center: center,
		radii:  radii,
		box:    Box{Min: vec.FromFloor(center.Sub(radii)), Max: vec.FromCeil(center.Add(radii))},
	}, nil
}

// Radii возвращает полуоси
func (e *Ellipsoid) Radii() mgl64.Vec3 { return e.radii }

func (e *Ellipsoid) Kind() Kind        { return KindEllipsoid }
func (e *Ellipsoid) World() world.Info { return e.world }
func (e *Ellipsoid) Bounds() Box       { return e.box }

func (e *Ellipsoid) Contains(cell vec.Vec3) bool {
	d := cell.Center().Sub(e.center)
	sum := 0.0
	for i := 0; i < 3; i++ {
		n := d[i] / e.radii[i]
		sum += n * n
	}
	return sum <= ellipsoidEpsilon
}

func (e *Ellipsoid) VolumeEstimate() uint64 {
	return roundVolume(4.0 / 3.0 * math.Pi * e.radii.X() * e.radii.Y() * e.radii.Z())
}

func (e *Ellipsoid) Center() mgl64.Vec3        { return e.center }
func (e *Ellipsoid) Cells() iter.Seq[vec.Vec3] { return scan(e.world, e.box, e.Contains) }
