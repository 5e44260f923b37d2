package region

import (
	"errors"
	"iter"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// ConvexHull выпуклая оболочка набора точек: пересечение полупространств граней
type ConvexHull struct {
	world    world.Info
	vertices []mgl64.Vec3
	planes   []plane
	fbox     floatBox
	box      Box
}

// NewConvexHull строит оболочку через стратегию hc (QuickHull, если nil).
// Нужно не меньше 4 уникальных точек, не лежащих в одной плоскости.
func NewConvexHull(w world.Info, points []mgl64.Vec3, hc HullComputer) (*ConvexHull, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	for _, p := range points {
		if err := checkFinite("points", p); err != nil {
			return nil, err
		}
	}
	unique := uniquePoints(points)
	if len(unique) < 4 {
		return nil, errs.Invalid("points", "convex hull needs at least 4 unique points, got %d", len(unique))
	}
	if hc == nil {
		hc = QuickHull{}
	}

	hull, err := hc.ComputeHull(unique)
	if err != nil {
		if errors.Is(err, ErrDegenerateInput) {
			return nil, errs.Invalid("points", "%v", err)
		}
		return nil, err
	}
	if len(hull.Vertices) < 4 || len(hull.Faces) < 4 {
		return nil, errs.Invalid("points", "hull has %d vertices and %d faces", len(hull.Vertices), len(hull.Faces))
	}

	centroid := mgl64.Vec3{}
	for _, v := range hull.Vertices {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Mul(1 / float64(len(hull.Vertices)))

	planes := make([]plane, 0, len(hull.Faces))
	for i, f := range hull.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(hull.Vertices) {
				return nil, errs.Invalid("faces", "face %d references vertex %d of %d", i, idx, len(hull.Vertices))
			}
		}
		pl, ok := planeThrough(hull.Vertices[f[0]], hull.Vertices[f[1]], hull.Vertices[f[2]])
		if !ok {
			logging.Trace("hull: вырожденная грань %d пропущена", i)
			continue
		}
		planes = append(planes, pl.facingAway(centroid))
	}

	fb := boundsOf(hull.Vertices)
	return &ConvexHull{
		world:    w,
		vertices: hull.Vertices,
		planes:   planes,
		fbox:     fb,
		box:      fb.cells(),
	}, nil
}

// Vertices возвращает копию вершин оболочки
func (h *ConvexHull) Vertices() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), h.vertices...)
}

// FaceCount число граней, участвующих в проверке
func (h *ConvexHull) FaceCount() int { return len(h.planes) }

func (h *ConvexHull) Kind() Kind        { return KindConvexHull }
func (h *ConvexHull) World() world.Info { return h.world }
func (h *ConvexHull) Bounds() Box       { return h.box }

func (h *ConvexHull) Contains(cell vec.Vec3) bool {
	c := cell.Center()
	if !h.fbox.contains(c) {
		return false
	}
	for _, pl := range h.planes {
		if !pl.inside(c) {
			return false
		}
	}
	return true
}

// VolumeEstimate объем ограничивающего параллелепипеда оболочки
func (h *ConvexHull) VolumeEstimate() uint64    { return roundVolume(h.fbox.volume()) }
func (h *ConvexHull) Center() mgl64.Vec3        { return h.fbox.center() }
func (h *ConvexHull) Cells() iter.Seq[vec.Vec3] { return scan(h.world, h.box, h.Contains) }

func uniquePoints(points []mgl64.Vec3) []mgl64.Vec3 {
	seen := make(map[mgl64.Vec3]struct{}, len(points))
	out := make([]mgl64.Vec3, 0, len(points))
	for _, p := range points {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
