package region

import (
	"iter"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Polygon вертикальная призма над многоугольником в плоскости X/Z.
// Вершины берутся в центрах ячеек, принадлежность определяется правилом чет-нечет.
type Polygon struct {
	world    world.Info
	vertices []vec.Vec2Float
	minY     int
	maxY     int
	box      Box
}

// NewPolygon создает призму по точкам (используются X и Z) и вертикальному диапазону [minY, maxY]
func NewPolygon(w world.Info, points []vec.Vec3, minY, maxY int) (*Polygon, error) {
	if err := checkWorld(w); err != nil {
		return nil, err
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	seen := make(map[vec.Vec2Float]struct{}, len(points))
	vertices := make([]vec.Vec2Float, 0, len(points))
	box := Box{Min: vec.Vec3{Y: minY}, Max: vec.Vec3{Y: maxY}}
	for i, p := range points {
		if i == 0 {
			box.Min.X, box.Max.X = p.X, p.X
			box.Min.Z, box.Max.Z = p.Z, p.Z
		}
		box.Min.X, box.Max.X = min(box.Min.X, p.X), max(box.Max.X, p.X)
		box.Min.Z, box.Max.Z = min(box.Min.Z, p.Z), max(box.Max.Z, p.Z)

		v := p.XZ()
		vertices = append(vertices, v)
		seen[v] = struct{}{}
	}
	if len(seen) < 3 {
		return nil, errs.Invalid("points", "polygon needs at least 3 unique vertices, got %d", len(seen))
	}

	return &Polygon{world: w, vertices: vertices, minY: minY, maxY: maxY, box: box}, nil
}

// Vertices возвращает копию вершин
func (p *Polygon) Vertices() []vec.Vec2Float {
	return append([]vec.Vec2Float(nil), p.vertices...)
}

// HeightRange возвращает вертикальный диапазон
func (p *Polygon) HeightRange() (int, int) { return p.minY, p.maxY }

func (p *Polygon) Kind() Kind        { return KindPolygon }
func (p *Polygon) World() world.Info { return p.world }
func (p *Polygon) Bounds() Box       { return p.box }

func (p *Polygon) Contains(cell vec.Vec3) bool {
	if cell.Y < p.minY || cell.Y > p.maxY {
		return false
	}
	return cell.XZ().InPolygon(p.vertices)
}

// VolumeEstimate верхняя оценка: объем ограничивающего параллелепипеда
func (p *Polygon) VolumeEstimate() uint64    { return p.box.Volume() }
func (p *Polygon) Center() mgl64.Vec3        { return p.box.Center() }
func (p *Polygon) Cells() iter.Seq[vec.Vec3] { return scan(p.world, p.box, p.Contains) }
