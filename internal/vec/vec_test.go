package vec

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFloorCeilNegative(t *testing.T) {
	p := mgl64.Vec3{-0.5, 1.5, -2}
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: -2}, FromFloor(p))
	assert.Equal(t, Vec3{X: 0, Y: 2, Z: -2}, FromCeil(p))
}

func TestMinMaxCenter(t *testing.T) {
	a, b := Vec3{X: 3, Y: -1, Z: 0}, Vec3{X: -2, Y: 4, Z: 0}
	assert.Equal(t, Vec3{X: -2, Y: -1, Z: 0}, a.Min(b))
	assert.Equal(t, Vec3{X: 3, Y: 4, Z: 0}, a.Max(b))
	assert.Equal(t, mgl64.Vec3{3.5, -0.5, 0.5}, a.Center())
	assert.Equal(t, 25+25, a.DistanceSq(b))
}

func TestInPolygon(t *testing.T) {
	square := []Vec2Float{{X: 0.5, Y: 0.5}, {X: 4.5, Y: 0.5}, {X: 4.5, Y: 4.5}, {X: 0.5, Y: 4.5}}

	assert.True(t, Vec3{X: 2, Z: 2}.XZ().InPolygon(square))
	assert.True(t, Vec3{X: 0, Z: 0}.XZ().InPolygon(square), "нижняя левая вершина внутри")
	assert.False(t, Vec3{X: 4, Z: 2}.XZ().InPolygon(square), "правая граница снаружи")
	assert.False(t, Vec3{X: -1, Z: 2}.XZ().InPolygon(square))
	assert.False(t, Vec2Float{X: 1, Y: 1}.InPolygon(nil))
}
