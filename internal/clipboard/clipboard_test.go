package clipboard

import (
	"testing"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardLayout(t *testing.T) {
	info := world.NewBounds("w", 0, 16)
	_, err := New(info, vec.Vec3{X: 0, Y: 1, Z: 1}, vec.Vec3{})
	assert.Error(t, err, "Нулевой размер недопустим")

	c, err := New(info, vec.Vec3{X: 2, Y: 2, Z: 2}, vec.Vec3{X: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), c.Volume())
	assert.Equal(t, 0, c.Count())

	stone := block.MustParse("stone")
	dirt := block.MustParse("dirt")
	require.NoError(t, c.Put(vec.Vec3{X: 1, Y: 0, Z: 0}, stone))
	require.NoError(t, c.Put(vec.Vec3{X: 0, Y: 1, Z: 0}, dirt))
	require.NoError(t, c.Put(vec.Vec3{X: 0, Y: 0, Z: 1}, block.Air))
	assert.Error(t, c.Put(vec.Vec3{X: 2}, stone))

	d, ok := c.At(vec.Vec3{X: 1})
	assert.True(t, ok)
	assert.Equal(t, stone, d)
	_, ok = c.At(vec.Vec3{X: 1, Y: 1, Z: 1})
	assert.False(t, ok, "Незаписанная ячейка отсутствует")
	_, ok = c.At(vec.Vec3{X: -1})
	assert.False(t, ok)

	var order []vec.Vec3
	for rel := range c.Cells() {
		order = append(order, rel)
	}
	assert.Equal(t, []vec.Vec3{{X: 1}, {Z: 1}, {Y: 1}}, order, "Обход в порядке y, z, x")
	assert.Equal(t, 3, c.Count())
}

func TestManager(t *testing.T) {
	m := NewManager()
	actor := uuid.New()
	_, ok := m.Get(actor)
	assert.False(t, ok)

	c, err := New(world.NewBounds("w", 0, 16), vec.Vec3{X: 1, Y: 1, Z: 1}, vec.Vec3{})
	require.NoError(t, err)
	m.Put(actor, c)
	got, ok := m.Get(actor)
	assert.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, m.Len())

	m.Remove(actor)
	assert.Equal(t, 0, m.Len())
}
