package region

import (
	"iter"
	"math"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Pyramid пирамида с прямоугольным горизонтальным основанием и произвольной вершиной.
// Основание лежит на меньшей из Y двух углов.
type Pyramid struct {
	world  world.Info
	base   [4]mgl64.Vec3
	apex   mgl64.Vec3
	floor  plane
	sides  []plane
	fbox   floatBox
	box    Box
	volume float64
	center mgl64.Vec3
}

// NewPyramid создает пирамиду по двум углам основания и вершине apex
func NewPyramid(w world.Info, corner1, corner2, apex mgl64.Vec3) (*Pyramid, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	for name, p := range map[string]mgl64.Vec3{"corner1": corner1, "corner2": corner2, "apex": apex} {
		if err := checkFinite(name, p); err != nil {
			return nil, err
		}
	}

	y := math.Min(corner1.Y(), corner2.Y())
	minX, maxX := math.Min(corner1.X(), corner2.X()), math.Max(corner1.X(), corner2.X())
	minZ, maxZ := math.Min(corner1.Z(), corner2.Z()), math.Max(corner1.Z(), corner2.Z())
	if maxX-minX == 0 || maxZ-minZ == 0 {
		return nil, errs.Invalid("base", "pyramid base has zero area")
	}
	height := math.Abs(apex.Y() - y)
	if height < planeEpsilon {
		return nil, errs.Invalid("apex", "apex lies in the base plane")
	}

	base := [4]mgl64.Vec3{
		{minX, y, minZ},
		{maxX, y, minZ},
		{maxX, y, maxZ},
		{minX, y, maxZ},
	}
	centroid := apex
	for _, v := range base {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Mul(0.2)

	floor, ok := planeThrough(base[0], base[1], base[2])
	if !ok {
		return nil, errs.Invalid("base", "degenerate base plane")
	}
	floor = floor.facingAway(apex)

	sides := make([]plane, 0, 4)
	for i := range base {
		pl, ok := planeThrough(base[i], base[(i+1)%4], apex)
		if !ok {
			logging.Trace("pyramid: вырожденная боковая грань %d пропущена", i)
			continue
		}
		sides = append(sides, pl.facingAway(centroid))
	}

	fb := boundsOf([]mgl64.Vec3{base[0], base[1], base[2], base[3], apex})

	// Стороны тоньше одной ячейки считаются за одну ячейку
	width, length := maxX-minX, maxZ-minZ
	if width < 1 {
		width = 1
	}
	if length < 1 {
		length = 1
	}
	baseCenter := mgl64.Vec3{(minX + maxX) / 2, y, (minZ + maxZ) / 2}

	return &Pyramid{
		world:  w,
		base:   base,
		apex:   apex,
		floor:  floor,
		sides:  sides,
		fbox:   fb,
		box:    fb.cells(),
		volume: width * length * height / 3,
		center: baseCenter.Mul(0.75).Add(apex.Mul(0.25)),
	}, nil
}

// Apex возвращает вершину пирамиды
func (p *Pyramid) Apex() mgl64.Vec3 { return p.apex }

// Base возвращает углы основания против часовой стрелки, начиная с (minX, minZ)
func (p *Pyramid) Base() [4]mgl64.Vec3 { return p.base }

func (p *Pyramid) Kind() Kind        { return KindPyramid }
func (p *Pyramid) World() world.Info { return p.world }
func (p *Pyramid) Bounds() Box       { return p.box }

func (p *Pyramid) Contains(cell vec.Vec3) bool {
	c := cell.Center()
	if !p.fbox.contains(c) || !p.floor.inside(c) {
		return false
	}
	for _, pl := range p.sides {
		if !pl.inside(c) {
			return false
		}
	}
	return true
}

func (p *Pyramid) VolumeEstimate() uint64    { return roundVolume(p.volume) }
func (p *Pyramid) Center() mgl64.Vec3        { return p.center }
func (p *Pyramid) Cells() iter.Seq[vec.Vec3] { return scan(p.world, p.box, p.Contains) }
