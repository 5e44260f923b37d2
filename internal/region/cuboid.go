package region

import (
	"iter"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Cuboid прямоугольный параллелепипед по двум противоположным углам
type Cuboid struct {
	world world.Info
	box   Box
}

// NewCuboid создает кубоид; углы могут быть заданы в любом порядке
func NewCuboid(w world.Info, a, b vec.Vec3) (*Cuboid, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	return &Cuboid{world: w, box: NewBox(a, b)}, nil
}

func (c *Cuboid) Kind() Kind                  { return KindCuboid }
func (c *Cuboid) World() world.Info           { return c.world }
func (c *Cuboid) Bounds() Box                 { return c.box }
func (c *Cuboid) Contains(cell vec.Vec3) bool { return c.box.Contains(cell) }
func (c *Cuboid) VolumeEstimate() uint64      { return c.box.Volume() }
func (c *Cuboid) Center() mgl64.Vec3          { return c.box.Center() }
func (c *Cuboid) Cells() iter.Seq[vec.Vec3]   { return scan(c.world, c.box, c.Contains) }
