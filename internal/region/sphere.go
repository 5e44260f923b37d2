package region

import (
	"iter"
	"math"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Sphere шар; ячейка внутри, если ее центр не дальше радиуса
type Sphere struct {
	world  world.Info
	center mgl64.Vec3
	radius float64
	box    Box
}

// NewSphere создает шар с центром center и радиусом radius > 0
func NewSphere(w world.Info, center mgl64.Vec3, radius float64) (*Sphere, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	if err := checkFinite("center", center); err != nil {
		return nil, err
	}
	if err := checkPositive("radius", radius); err != nil {
		return nil, err
	}
	r := mgl64.Vec3{radius, radius, radius}
	return &Sphere{
		world:  w,
		center: center,
		radius: radius,
		box:    Box{Min: vec.FromFloor(center.Sub(r)), Max: vec.FromCeil(center.Add(r))},
	}, nil
}

// Radius возвращает радиус
func (s *Sphere) Radius() float64 { return s.radius }

func (s *Sphere) Kind() Kind        { return KindSphere }
func (s *Sphere) World() world.Info { return s.world }
func (s *Sphere) Bounds() Box       { return s.box }

func (s *Sphere) Contains(cell vec.Vec3) bool {
	d := cell.Center().Sub(s.center)
	return d.Dot(d) <= s.radius*s.radius
}

func (s *Sphere) VolumeEstimate() uint64 {
	return roundVolume(4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius)
}

func (s *Sphere) Center() mgl64.Vec3        { return s.center }
func (s *Sphere) Cells() iter.Seq[vec.Vec3] { return scan(s.world, s.box, s.Contains) }
