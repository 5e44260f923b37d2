package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world/block"
)

const chunkShift = 4 // 16x16 колонки

type chunkKey struct{ X, Z int }

// chunk хранит только непустые ячейки колонки 16x16
type chunk struct {
	cells map[vec.Vec3]block.Descriptor
}

type job struct {
	fn   func() error
	done chan error
}

// MemoryWorld хранит мир в памяти по чанкам.
// Все задачи RunExclusive выполняются последовательно одной горутиной мира.
type MemoryWorld struct {
	Bounds

	mu     sync.RWMutex
	chunks map[chunkKey]*chunk

	jobs      chan job
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// OnPhysics вызывается для записей с notifyPhysics=true
	OnPhysics func(pos vec.Vec3, d block.Descriptor)
}

// NewMemoryWorld создает мир и запускает горутину исполнения задач
func NewMemoryWorld(name string, minHeight, maxHeight int) *MemoryWorld {
	ctx, cancel := context.WithCancel(context.Background())
	w := &MemoryWorld{
		Bounds: NewBounds(name, minHeight, maxHeight),
		chunks: make(map[chunkKey]*chunk),
		jobs:   make(chan job, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop последовательно выполняет задачи мира
func (w *MemoryWorld) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case j := <-w.jobs:
			j.done <- w.safeRun(j.fn)
		}
	}
}

func (w *MemoryWorld) safeRun(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Паника в задаче мира %s: %v", w.WorldName, r)
			err = panicError{r}
		}
	}()
	return fn()
}

// RunExclusive ставит fn в очередь мира и ждет результата
func (w *MemoryWorld) RunExclusive(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case <-w.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.jobs <- j:
	}
	select {
	case err := <-j.done:
		return err
	case <-w.done:
		return ErrClosed
	}
}

// Close останавливает горутину мира. Данные остаются доступны для чтения.
func (w *MemoryWorld) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		<-w.done
	})
}

func keyOf(pos vec.Vec3) chunkKey {
	return chunkKey{X: pos.X >> chunkShift, Z: pos.Z >> chunkShift}
}

// Cell возвращает дескриптор ячейки; отсутствующие ячейки пусты
func (w *MemoryWorld) Cell(pos vec.Vec3) (block.Descriptor, error) {
	if !InHeight(w, pos.Y) {
		return block.Air, nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.chunks[keyOf(pos)]
	if !ok {
		return block.Air, nil
	}
	if d, ok := c.cells[pos]; ok {
		return d, nil
	}
	return block.Air, nil
}

// SetCell записывает дескриптор ячейки
func (w *MemoryWorld) SetCell(pos vec.Vec3, d block.Descriptor, notifyPhysics bool) error {
	if !InHeight(w, pos.Y) {
		return ErrOutOfBounds
	}
	w.mu.Lock()
	key := keyOf(pos)
	c, ok := w.chunks[key]
	if !ok {
		if d.IsAir() {
			w.mu.Unlock()
			return nil
		}
		c = &chunk{cells: make(map[vec.Vec3]block.Descriptor)}
		w.chunks[key] = c
	}
	if d.IsAir() {
		delete(c.cells, pos)
		if len(c.cells) == 0 {
			delete(w.chunks, key)
		}
	} else {
		c.cells[pos] = d
	}
	w.mu.Unlock()

	if notifyPhysics && w.OnPhysics != nil {
		w.OnPhysics(pos, d)
	}
	return nil
}

// ChunkCount возвращает число непустых чанков
func (w *MemoryWorld) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// CellCount возвращает число непустых ячеек
func (w *MemoryWorld) CellCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, c := range w.chunks {
		n += len(c.cells)
	}
	return n
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return fmt.Sprintf("world task panic: %v", p.v) }
