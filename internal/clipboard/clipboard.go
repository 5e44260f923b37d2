// Package clipboard хранит скопированные фрагменты мира по акторам.
package clipboard

import (
	"fmt"
	"iter"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
)

// Clipboard снимок ограничивающего параллелепипеда области.
// Ячейки лежат в порядке [y][z][x]; ячейки вне области отмечены как отсутствующие
// и при вставке пропускаются.
type Clipboard struct {
	world   world.Info
	size    vec.Vec3
	origin  vec.Vec3
	cells   []block.Descriptor
	present []bool
}

// New создает пустой буфер размера size. origin смещение актора от минимального угла.
func New(w world.Info, size, origin vec.Vec3) (*Clipboard, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("clipboard: invalid size %s", size)
	}
	n := size.X * size.Y * size.Z
	return &Clipboard{
		world:   w,
		size:    size,
		origin:  origin,
		cells:   make([]block.Descriptor, n),
		present: make([]bool, n),
	}, nil
}

// World мир, из которого сделана копия. Вставка допустима в любой мир.
func (c *Clipboard) World() world.Info { return c.world }

// Size ширина (X), высота (Y) и длина (Z)
func (c *Clipboard) Size() vec.Vec3 { return c.size }

// Origin смещение актора от минимального угла в момент копирования
func (c *Clipboard) Origin() vec.Vec3 { return c.origin }

// Volume объем параллелепипеда буфера
func (c *Clipboard) Volume() uint64 {
	return uint64(c.size.X) * uint64(c.size.Y) * uint64(c.size.Z)
}

func (c *Clipboard) index(rel vec.Vec3) (int, bool) {
	if rel.X < 0 || rel.Y < 0 || rel.Z < 0 || rel.X >= c.size.X || rel.Y >= c.size.Y || rel.Z >= c.size.Z {
		return 0, false
	}
	return (rel.Y*c.size.Z+rel.Z)*c.size.X + rel.X, true
}

// Put записывает ячейку по относительной координате
func (c *Clipboard) Put(rel vec.Vec3, d block.Descriptor) error {
	i, ok := c.index(rel)
	if !ok {
		return fmt.Errorf("clipboard: %s outside buffer %s", rel, c.size)
	}
	c.cells[i] = d
	c.present[i] = true
	return nil
}

// At возвращает ячейку и признак ее наличия
func (c *Clipboard) At(rel vec.Vec3) (block.Descriptor, bool) {
	i, ok := c.index(rel)
	if !ok || !c.present[i] {
		return block.Air, false
	}
	return c.cells[i], true
}

// Count число присутствующих ячеек
func (c *Clipboard) Count() int {
	n := 0
	for _, p := range c.present {
		if p {
			n++
		}
	}
	return n
}

// Cells обходит присутствующие ячейки в порядке y, z, x
func (c *Clipboard) Cells() iter.Seq2[vec.Vec3, block.Descriptor] {
	return func(yield func(vec.Vec3, block.Descriptor) bool) {
		for y := 0; y < c.size.Y; y++ {
			for z := 0; z < c.size.Z; z++ {
				for x := 0; x < c.size.X; x++ {
					i := (y*c.size.Z+z)*c.size.X + x
					if !c.present[i] {
						continue
					}
					if !yield(vec.Vec3{X: x, Y: y, Z: z}, c.cells[i]) {
						return
					}
				}
			}
		}
	}
}
