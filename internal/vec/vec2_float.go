package vec

// Vec2Float точка в горизонтальной плоскости; Y хранит мировую координату Z.
type Vec2Float struct {
	X, Y float64
}

// InPolygon проверяет принадлежность точки многоугольнику по правилу чет-нечет.
// Вершины обходятся по порядку, последняя замыкается на первую.
func (v Vec2Float) InPolygon(vertices []Vec2Float) bool {
	inside := false
	n := len(vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := vertices[i], vertices[j]
		if (a.Y <= v.Y && v.Y < b.Y) || (b.Y <= v.Y && v.Y < a.Y) {
			if v.X < (b.X-a.X)*(v.Y-a.Y)/(b.Y-a.Y)+a.X {
				inside = !inside
			}
		}
	}
	return inside
}
