package world

import (
	"context"
	"math"

	"github.com/annel0/worldedit/internal/util"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world/block"
)

// TerrainGenerator заполняет область мира холмистым ландшафтом по шуму Перлина
type TerrainGenerator struct {
	Seed       int64
	NoiseScale float64 // Масштаб шума высоты
	BaseHeight int     // Высота "нулевого" уровня
	Amplitude  int     // Разброс высот
	SeaLevel   int     // Ниже уровня вода
	noise      *util.Noise
}

// NewTerrainGenerator создает генератор с параметрами по умолчанию
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed:       seed,
		NoiseScale: 0.05,
		BaseHeight: 56,
		Amplitude:  16,
		SeaLevel:   60,
		noise:      util.NewNoise(seed),
	}
}

// Height возвращает высоту поверхности колонки (x, z)
func (g *TerrainGenerator) Height(x, z int) int {
	n := g.noise.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	return g.BaseHeight + int(math.Round(n*float64(g.Amplitude)))
}

// Generate заполняет колонки прямоугольника [from, to] по X/Z.
// Запись идет внутри RunExclusive, без уведомления физики.
func (g *TerrainGenerator) Generate(ctx context.Context, s Store, from, to vec.Vec3) error {
	lo, hi := from.Min(to), from.Max(to)
	stone := block.Descriptor{ID: block.StoneBlockID}
	dirt := block.Descriptor{ID: block.DirtBlockID}
	sand := block.Descriptor{ID: block.SandBlockID}
	grass := block.MustParse("grass")
	water := block.MustParse("water")

	return s.RunExclusive(ctx, func() error {
		for x := lo.X; x <= hi.X; x++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				top := g.Height(x, z)
				for y := s.MinHeight(); y <= top && y < s.MaxHeight(); y++ {
					d := stone
					switch {
					case y == top && top < g.SeaLevel:
						d = sand
					case y == top:
						d = grass
					case y > top-4:
						d = dirt
					}
					if err := s.SetCell(vec.Vec3{X: x, Y: y, Z: z}, d, false); err != nil {
						return err
					}
				}
				for y := top + 1; y <= g.SeaLevel && y < s.MaxHeight(); y++ {
					if err := s.SetCell(vec.Vec3{X: x, Y: y, Z: z}, water, false); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}
