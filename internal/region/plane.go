package region

import "github.com/go-gl/mathgl/mgl64"

// plane полупространство n·p - d <= 0 (нормаль наружу)
type plane struct {
	normal mgl64.Vec3
	d      float64
}

// planeThrough строит плоскость по трем точкам; ok=false для вырожденного треугольника
func planeThrough(p1, p2, p3 mgl64.Vec3) (plane, bool) {
	n := p2.Sub(p1).Cross(p3.Sub(p1))
	l := n.Len()
	if l < 1e-9 {
		return plane{}, false
	}
	n = n.Mul(1 / l)
	return plane{normal: n, d: n.Dot(p1)}, true
}

func (p plane) distance(x mgl64.Vec3) float64 {
	return p.normal.Dot(x) - p.d
}

func (p plane) flipped() plane {
	return plane{normal: p.normal.Mul(-1), d: -p.d}
}

// facingAway ориентирует плоскость так, чтобы inner лежала с внутренней стороны
func (p plane) facingAway(inner mgl64.Vec3) plane {
	if p.distance(inner) > 0 {
		return p.flipped()
	}
	return p
}

func (p plane) inside(x mgl64.Vec3) bool {
	return p.distance(x) <= planeEpsilon
}
