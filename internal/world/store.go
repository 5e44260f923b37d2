// Package world описывает контракт хранилища ячеек и его реализацию в памяти.
package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world/block"
)

var (
	// ErrOutOfBounds запись вне вертикальных границ мира
	ErrOutOfBounds = errors.New("position outside world height bounds")
	// ErrClosed мир остановлен и не принимает задачи
	ErrClosed = errors.New("world is closed")
)

// Info содержит сведения о границах мира, нужные геометрии.
// MaxHeight исключающая граница: допустимы Y из [MinHeight, MaxHeight).
type Info interface {
	Name() string
	MinHeight() int
	MaxHeight() int
}

// Store хранилище дескрипторов ячеек.
//
// Cell и SetCell разрешено вызывать только внутри RunExclusive.
// RunExclusive выполняет fn в безопасном для мира контексте и возвращает ее ошибку;
// вложенные вызовы RunExclusive не поддерживаются.
type Store interface {
	Info
	Cell(pos vec.Vec3) (block.Descriptor, error)
	SetCell(pos vec.Vec3, d block.Descriptor, notifyPhysics bool) error
	RunExclusive(ctx context.Context, fn func() error) error
}

// Bounds простая реализация Info
type Bounds struct {
	WorldName string
	Min, Max  int
}

// NewBounds создает Info с заданными границами
func NewBounds(name string, minHeight, maxHeight int) Bounds {
	return Bounds{WorldName: name, Min: minHeight, Max: maxHeight}
}

func (b Bounds) Name() string   { return b.WorldName }
func (b Bounds) MinHeight() int { return b.Min }
func (b Bounds) MaxHeight() int { return b.Max }

// InHeight проверяет, что Y лежит в границах мира
func InHeight(w Info, y int) bool {
	return y >= w.MinHeight() && y < w.MaxHeight()
}

// SameWorld сравнивает миры по имени
func SameWorld(a, b Info) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name() == b.Name()
}

// Location адрес ячейки в конкретном мире
type Location struct {
	World Info
	Pos   vec.Vec3
}

func (l Location) String() string {
	if l.World == nil {
		return l.Pos.String()
	}
	return fmt.Sprintf("%s%s", l.World.Name(), l.Pos)
}
