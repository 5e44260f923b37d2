package region

import (
	"errors"
	"math"
	"testing"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWorld = world.NewBounds("test", -64, 320)

// assertExactIteration проверяет, что обход совпадает с {ячейки параллелепипеда : Contains},
// каждая ячейка ровно один раз, и что вне параллелепипеда Contains ложно.
func assertExactIteration(t *testing.T, r Region) {
	t.Helper()
	box := r.Bounds()

	seen := make(map[vec.Vec3]int)
	for c := range r.Cells() {
		seen[c]++
		assert.True(t, r.Contains(c), "Обход отдал ячейку вне формы: %v", c)
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "Ячейка %v отдана %d раз", c, n)
	}

	expected := 0
	for z := box.Min.Z; z <= box.Max.Z; z++ {
		for y := max(box.Min.Y, testWorld.MinHeight()); y <= min(box.Max.Y, testWorld.MaxHeight()-1); y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				c := vec.Vec3{X: x, Y: y, Z: z}
				if r.Contains(c) {
					expected++
					assert.Contains(t, seen, c, "Обход пропустил ячейку %v", c)
				}
			}
		}
	}
	assert.Equal(t, expected, len(seen))

	// Оболочка вокруг параллелепипеда
	for z := box.Min.Z - 2; z <= box.Max.Z+2; z++ {
		for y := box.Min.Y - 2; y <= box.Max.Y+2; y++ {
			for x := box.Min.X - 2; x <= box.Max.X+2; x++ {
				c := vec.Vec3{X: x, Y: y, Z: z}
				if !box.Contains(c) {
					assert.False(t, r.Contains(c), "Ячейка %v вне параллелепипеда считается внутренней", c)
				}
			}
		}
	}
}

func TestCuboidCountsAndVolume(t *testing.T) {
	c, err := NewCuboid(testWorld, vec.Vec3{X: 2, Y: 2, Z: 2}, vec.Vec3{})
	require.NoError(t, err)

	assert.Equal(t, uint64(27), c.VolumeEstimate())
	assert.Equal(t, 27, Count(c))
	assert.Equal(t, mgl64.Vec3{1.5, 1.5, 1.5}, c.Center())
	assertExactIteration(t, c)
}

func TestIterationOrderIsZYX(t *testing.T) {
	c, err := NewCuboid(testWorld, vec.Vec3{}, vec.Vec3{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)

	var got []vec.Vec3
	for cell := range c.Cells() {
		got = append(got, cell)
	}
	want := []vec.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
	}
	assert.Equal(t, want, got)
}

func TestIterationIsRestartableAndStoppable(t *testing.T) {
	s, err := NewSphere(testWorld, mgl64.Vec3{}, 3)
	require.NoError(t, err)

	first := Count(s)
	assert.Equal(t, first, Count(s), "Повторный обход должен давать ту же последовательность")

	n := 0
	for range s.Cells() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestIterationClampsToWorldHeight(t *testing.T) {
	low := world.NewBounds("low", 0, 4)
	c, err := NewCuboid(low, vec.Vec3{Y: -10}, vec.Vec3{X: 1, Y: 10, Z: 1})
	require.NoError(t, err)

	for cell := range c.Cells() {
		assert.True(t, world.InHeight(low, cell.Y), "Ячейка %v вне высот мира", cell)
	}
	assert.Equal(t, 2*4*2, Count(c))
}

func TestSphereCountCloseToAnalyticVolume(t *testing.T) {
	s, err := NewSphere(testWorld, mgl64.Vec3{10, 64, -3}, 10)
	require.NoError(t, err)

	analytic := 4.0 / 3.0 * math.Pi * 1000
	n := float64(Count(s))
	assert.InDelta(t, analytic, n, analytic*0.15)
	assert.Equal(t, uint64(math.Round(analytic)), s.VolumeEstimate())
}

func TestVariantsIterateExactly(t *testing.T) {
	mustCyl := func(b1, b2 mgl64.Vec3, r float64) Region {
		c, err := NewCylinder(testWorld, b1, b2, r)
		require.NoError(t, err)
		return c
	}
	mustEll := func(c, r mgl64.Vec3) Region {
		e, err := NewEllipsoid(testWorld, c, r)
		require.NoError(t, err)
		return e
	}
	sphere, err := NewSphere(testWorld, mgl64.Vec3{0.3, 5, -2}, 4.5)
	require.NoError(t, err)
	poly, err := NewPolygon(testWorld, []vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 8, Y: 0, Z: 0}, {X: 8, Y: 0, Z: 8}, {X: 4, Y: 0, Z: 3}, {X: 0, Y: 0, Z: 8}}, 0, 3)
	require.NoError(t, err)
	hull, err := NewConvexHull(testWorld, []mgl64.Vec3{{0, 0, 0}, {6, 0, 0}, {0, 6, 0}, {0, 0, 6}, {1, 1, 1}}, nil)
	require.NoError(t, err)
	pyr, err := NewPyramid(testWorld, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{7, 12, 5}, mgl64.Vec3{2, 16, 2})
	require.NoError(t, err)
	hanging, err := NewPyramid(testWorld, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{4, 10, 4}, mgl64.Vec3{2, 5, 2})
	require.NoError(t, err)

	cases := map[string]Region{
		"sphere":            sphere,
		"vertical cylinder": mustCyl(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 6, 0}, 3),
		"tilted cylinder":   mustCyl(mgl64.Vec3{-2, 1, 0}, mgl64.Vec3{5, 7, 3}, 2.2),
		"ellipsoid":         mustEll(mgl64.Vec3{1, 20, 1}, mgl64.Vec3{5, 2, 3}),
		"polygon":           poly,
		"hull":              hull,
		"pyramid":           pyr,
		"hanging pyramid":   hanging,
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Greater(t, Count(r), 0)
			assertExactIteration(t, r)
		})
	}
}

func TestCylinderContainment(t *testing.T) {
	c, err := NewCylinder(testWorld, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 4, 0}, 2)
	require.NoError(t, err)

	assert.True(t, c.Contains(vec.Vec3{X: 0, Y: 0, Z: 0}))
	assert.True(t, c.Contains(vec.Vec3{X: 1, Y: 3, Z: 0}))
	assert.False(t, c.Contains(vec.Vec3{X: 0, Y: 4, Z: 0}), "Центр ячейки выше верхнего основания")
	assert.False(t, c.Contains(vec.Vec3{X: 2, Y: 1, Z: 0}))
	assert.Equal(t, 0, c.Bounds().Min.Y)
	assert.Equal(t, 4, c.Bounds().Max.Y)
	assert.Equal(t, uint64(math.Round(math.Pi*4*4)), c.VolumeEstimate())
}

func TestEllipsoidIncludesBoundaryCells(t *testing.T) {
	e, err := NewEllipsoid(testWorld, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{3, 1, 1})
	require.NoError(t, err)

	assert.True(t, e.Contains(vec.Vec3{X: 3}), "Ячейка на границе должна включаться")
	assert.False(t, e.Contains(vec.Vec3{X: 4}))
	assert.False(t, e.Contains(vec.Vec3{X: 1, Y: 1}))
}

func TestPolygonConcaveShape(t *testing.T) {
	// Буква "U": выемка сверху
	p, err := NewPolygon(testWorld, []vec.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 6, Y: 0, Z: 0}, {X: 6, Y: 0, Z: 6}, {X: 4, Y: 0, Z: 6}, {X: 4, Y: 0, Z: 2}, {X: 2, Y: 0, Z: 2}, {X: 2, Y: 0, Z: 6}, {X: 0, Y: 0, Z: 6},
	}, 5, 1)
	require.NoError(t, err)

	assert.True(t, p.Contains(vec.Vec3{X: 1, Y: 3, Z: 4}))
	assert.False(t, p.Contains(vec.Vec3{X: 3, Y: 3, Z: 4}), "Выемка не принадлежит многоугольнику")
	assert.False(t, p.Contains(vec.Vec3{X: 1, Y: 6, Z: 4}))
	lo, hi := p.HeightRange()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 5, hi)
}

func TestHullContainsVerticesAndRejectsOutside(t *testing.T) {
	pts := []mgl64.Vec3{{0.5, 0.5, 0.5}, {10.5, 0.5, 0.5}, {0.5, 10.5, 0.5}, {0.5, 0.5, 10.5}}
	h, err := NewConvexHull(testWorld, pts, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, h.FaceCount())
	assert.True(t, h.Contains(vec.Vec3{}))
	assert.True(t, h.Contains(vec.Vec3{X: 10}))
	assert.True(t, h.Contains(vec.Vec3{X: 2, Y: 2, Z: 2}))
	assert.False(t, h.Contains(vec.Vec3{X: 6, Y: 6, Z: 6}))
}

func TestHullUsesInjectedStrategy(t *testing.T) {
	calls := 0
	tetra := HullFunc(func(points []mgl64.Vec3) (Hull, error) {
		calls++
		// Грани с произвольной ориентацией: регион сам ориентирует нормали наружу
		return Hull{Vertices: points[:4], Faces: [][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}}, nil
	})
	h, err := NewConvexHull(testWorld, []mgl64.Vec3{{0, 0, 0}, {4, 0, 0}, {0, 4, 0}, {0, 0, 4}}, tetra)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, h.Contains(vec.Vec3{}))
	assert.False(t, h.Contains(vec.Vec3{X: 3, Y: 3, Z: 3}))
}

func TestPyramidShape(t *testing.T) {
	p, err := NewPyramid(testWorld, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 3, 10}, mgl64.Vec3{5, 10, 5})
	require.NoError(t, err)

	assert.True(t, p.Contains(vec.Vec3{X: 5, Y: 0, Z: 5}))
	assert.True(t, p.Contains(vec.Vec3{X: 4, Y: 8, Z: 4}))
	assert.False(t, p.Contains(vec.Vec3{X: 0, Y: 8, Z: 0}))
	assert.False(t, p.Contains(vec.Vec3{X: 5, Y: -1, Z: 5}), "Ниже основания")
	assert.Equal(t, uint64(math.Round(10*10*10/3.0)), p.VolumeEstimate())
	assert.InDelta(t, 0.75*5+0.25*5, p.Center().X(), 1e-9)
	assert.InDelta(t, 2.5, p.Center().Y(), 1e-9)
}

func TestConstructionValidation(t *testing.T) {
	_, err := NewSphere(testWorld, mgl64.Vec3{}, 0)
	assert.True(t, errs.IsValidation(err))
	_, err = NewSphere(testWorld, mgl64.Vec3{}, math.NaN())
	assert.True(t, errs.IsValidation(err))
	_, err = NewSphere(nil, mgl64.Vec3{}, 1)
	assert.True(t, errs.IsValidation(err))

	_, err = NewCylinder(testWorld, mgl64.Vec3{}, mgl64.Vec3{0, 3, 0}, -1)
	assert.True(t, errs.IsValidation(err))
	_, err = NewCylinder(testWorld, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}, 2)
	assert.True(t, errs.IsValidation(err))

	_, err = NewEllipsoid(testWorld, mgl64.Vec3{}, mgl64.Vec3{1, 0, 1})
	assert.True(t, errs.IsValidation(err))

	_, err = NewPolygon(testWorld, []vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 5, Z: 0}, {X: 1, Y: 0, Z: 0}}, 0, 1)
	assert.True(t, errs.IsValidation(err), "Точки с одинаковыми X/Z не уникальны")

	_, err = NewConvexHull(testWorld, []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 0, 0}}, nil)
	assert.True(t, errs.IsValidation(err))
	_, err = NewConvexHull(testWorld, []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {5, 5, 0}}, nil)
	assert.True(t, errs.IsValidation(err), "Копланарные точки вырождены")

	_, err = NewPyramid(testWorld, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 5, 0})
	assert.True(t, errs.IsValidation(err))
	_, err = NewPyramid(testWorld, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 5}, mgl64.Vec3{2, 0, 2})
	assert.True(t, errs.IsValidation(err))
}

func TestQuickHullDegenerateInput(t *testing.T) {
	_, err := QuickHull{}.ComputeHull([]mgl64.Vec3{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}})
	assert.True(t, errors.Is(err, ErrDegenerateInput), "Коллинеарные точки вырождены")

	hull, err := QuickHull{}.ComputeHull([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.1, 0.1, 0.1}})
	require.NoError(t, err)
	assert.Len(t, hull.Vertices, 4, "Внутренняя точка не входит в оболочку")
	assert.Len(t, hull.Faces, 4)
}
