package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"
)

// ErrDegenerateInput меньше 4 уникальных точек или все точки в одной плоскости
var ErrDegenerateInput = errors.New("degenerate hull input")

// Hull результат построения оболочки: вершины и треугольные грани (индексы вершин)
type Hull struct {
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

// HullComputer стратегия построения выпуклой оболочки
type HullComputer interface {
	ComputeHull(points []mgl64.Vec3) (Hull, error)
}

// HullFunc адаптер функции к HullComputer
type HullFunc func(points []mgl64.Vec3) (Hull, error)

func (f HullFunc) ComputeHull(points []mgl64.Vec3) (Hull, error) { return f(points) }

// QuickHull стратегия по умолчанию на базе quickhull-go
type QuickHull struct {
	// Epsilon допуск алгоритма; 0 означает автоматический выбор
	Epsilon float64
}

// ComputeHull строит оболочку. Вырожденный ввод проверяется заранее,
// потому что quickhull для плоских наборов возвращает плоскую "оболочку".
func (q QuickHull) ComputeHull(points []mgl64.Vec3) (Hull, error) {
	unique := uniquePoints(points)
	if len(unique) < 4 {
		return Hull{}, fmt.Errorf("%w: %d unique points", ErrDegenerateInput, len(unique))
	}
	if !spans3D(unique) {
		return Hull{}, fmt.Errorf("%w: points are collinear or coplanar", ErrDegenerateInput)
	}

	cloud := make([]r3.Vector, len(unique))
	for i, p := range unique {
		cloud[i] = r3.Vector{X: p.X(), Y: p.Y(), Z: p.Z()}
	}
	result := new(quickhull.QuickHull).ConvexHull(cloud, true, false, q.Epsilon)

	var (
		hull  Hull
		index = make(map[r3.Vector]int)
	)
	indexOf := func(v r3.Vector) int {
		if i, ok := index[v]; ok {
			return i
		}
		i := len(hull.Vertices)
		index[v] = i
		hull.Vertices = append(hull.Vertices, mgl64.Vec3{v.X, v.Y, v.Z})
		return i
	}
	for _, tri := range result.Triangles() {
		hull.Faces = append(hull.Faces, [3]int{indexOf(tri[0]), indexOf(tri[1]), indexOf(tri[2])})
	}
	if len(hull.Faces) < 4 {
		return Hull{}, fmt.Errorf("%w: only %d faces produced", ErrDegenerateInput, len(hull.Faces))
	}
	return hull, nil
}

// spans3D проверяет, что точки не лежат в одной плоскости
func spans3D(points []mgl64.Vec3) bool {
	fb := boundsOf(points)
	scale := fb.max.Sub(fb.min).Len()
	if scale == 0 {
		return false
	}
	eps := scale * 1e-9

	p0 := points[0]
	var dir mgl64.Vec3
	found := false
	for _, p := range points[1:] {
		if d := p.Sub(p0); d.Len() > eps {
			dir, found = d, true
			break
		}
	}
	if !found {
		return false
	}

	var normal mgl64.Vec3
	found = false
	for _, p := range points[1:] {
		if n := dir.Cross(p.Sub(p0)); n.Len() > eps*scale {
			normal, found = n.Normalize(), true
			break
		}
	}
	if !found {
		return false
	}

	for _, p := range points[1:] {
		if math.Abs(normal.Dot(p.Sub(p0))) > eps {
			return true
		}
	}
	return false
}
