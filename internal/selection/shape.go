package selection

import (
	"fmt"
	"strings"

	"github.com/annel0/worldedit/internal/errs"
)

// Shape тег активной формы выделения
type Shape int

const (
	Cuboid Shape = iota
	Sphere
	Cylinder
	Ellipsoid
	Polygon
	Hull
	Pyramid
)

// shapeRules минимальное и максимальное число точек; refuse означает,
// что при заполнении новые точки отклоняются вместо циклической перезаписи.
var shapeRules = map[Shape]struct {
	name     string
	min, max int
	refuse   bool
}{
	Cuboid:    {"cuboid", 2, 2, false},
	Sphere:    {"sphere", 1, 2, false},
	Cylinder:  {"cylinder", 2, 3, false},
	Ellipsoid: {"ellipsoid", 1, 4, false},
	Polygon:   {"polygon", 3, 50, true},
	Hull:      {"hull", 4, 50, true},
	Pyramid:   {"pyramid", 3, 3, false},
}

func (s Shape) String() string {
	if r, ok := shapeRules[s]; ok {
		return r.name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// MinPoints минимальное число точек для построения формы
func (s Shape) MinPoints() int { return shapeRules[s].min }

// MaxPoints максимальное число хранимых точек
func (s Shape) MaxPoints() int { return shapeRules[s].max }

// ParseShape разбирает имя формы без учета регистра
func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, r := range shapeRules {
		if r.name == name {
			return s, nil
		}
	}
	return 0, errs.Invalid("shape", "unknown selection shape %q", name)
}
