package world

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWorldSetAndGet(t *testing.T) {
	w := NewMemoryWorld("test", 0, 256)
	defer w.Close()

	pos := vec.Vec3{X: -17, Y: 10, Z: 33}
	stone := block.MustParse("stone")

	err := w.RunExclusive(context.Background(), func() error {
		d, err := w.Cell(pos)
		require.NoError(t, err)
		assert.True(t, d.IsAir(), "Пустая ячейка должна быть воздухом")
		return w.SetCell(pos, stone, false)
	})
	require.NoError(t, err)

	d, err := w.Cell(pos)
	require.NoError(t, err)
	assert.Equal(t, stone, d)
	assert.Equal(t, 1, w.CellCount())

	require.NoError(t, w.SetCell(pos, block.Air, false))
	assert.Equal(t, 0, w.ChunkCount(), "Пустой чанк должен удаляться")
}

func TestMemoryWorldHeightBounds(t *testing.T) {
	w := NewMemoryWorld("test", -64, 320)
	defer w.Close()

	assert.ErrorIs(t, w.SetCell(vec.Vec3{Y: 320}, block.MustParse("stone"), false), ErrOutOfBounds)
	assert.NoError(t, w.SetCell(vec.Vec3{Y: -64}, block.MustParse("stone"), false))
	assert.ErrorIs(t, w.SetCell(vec.Vec3{Y: -65}, block.MustParse("stone"), false), ErrOutOfBounds)
}

func TestMemoryWorldPhysicsHook(t *testing.T) {
	w := NewMemoryWorld("test", 0, 16)
	defer w.Close()

	var notified []vec.Vec3
	w.OnPhysics = func(pos vec.Vec3, _ block.Descriptor) { notified = append(notified, pos) }

	require.NoError(t, w.SetCell(vec.Vec3{X: 1}, block.MustParse("sand"), true))
	require.NoError(t, w.SetCell(vec.Vec3{X: 2}, block.MustParse("sand"), false))
	assert.Equal(t, []vec.Vec3{{X: 1}}, notified)
}

func TestRunExclusiveSerializesTasks(t *testing.T) {
	w := NewMemoryWorld("test", 0, 16)
	defer w.Close()

	var (
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.RunExclusive(context.Background(), func() error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak, "Задачи мира не должны пересекаться")
}

func TestRunExclusivePropagatesErrorsAndPanics(t *testing.T) {
	w := NewMemoryWorld("test", 0, 16)

	boom := errors.New("boom")
	assert.ErrorIs(t, w.RunExclusive(context.Background(), func() error { return boom }), boom)
	assert.Error(t, w.RunExclusive(context.Background(), func() error { panic("oops") }))

	w.Close()
	assert.ErrorIs(t, w.RunExclusive(context.Background(), func() error { return nil }), ErrClosed)
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	w := NewMemoryWorld("overworld", 0, 16)
	defer w.Close()
	require.NoError(t, r.Register(w))
	assert.Error(t, r.Register(w))

	s, err := r.Resolve(NewBounds("overworld", 0, 16))
	require.NoError(t, err)
	assert.Same(t, w, s)

	_, err = r.Resolve(NewBounds("nether", 0, 16))
	assert.Error(t, err)
	assert.Equal(t, []string{"overworld"}, r.Names())
}

func TestTerrainGeneratorDeterministic(t *testing.T) {
	g1 := NewTerrainGenerator(42)
	g2 := NewTerrainGenerator(42)
	for x := 0; x < 8; x++ {
		assert.Equal(t, g1.Height(x, x*3), g2.Height(x, x*3), "Одинаковый сид должен давать одинаковый рельеф")
	}

	w := NewMemoryWorld("gen", 0, 128)
	defer w.Close()
	require.NoError(t, g1.Generate(context.Background(), w, vec.Vec3{}, vec.Vec3{X: 3, Z: 3}))

	top := g1.Height(1, 1)
	d, err := w.Cell(vec.Vec3{X: 1, Y: top, Z: 1})
	require.NoError(t, err)
	assert.False(t, d.IsAir(), "Поверхность должна быть заполнена")
	d, _ = w.Cell(vec.Vec3{X: 1, Y: 0, Z: 1})
	assert.Equal(t, block.StoneBlockID, d.ID)
}
