// Package storage хранит мир в BadgerDB.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/dgraph-io/badger/v3"
)

const chunkShift = 4 // 16x16 колонки, как в памяти

var _ world.Store = (*BadgerWorld)(nil)

type chunkCoords struct{ X, Z int }

type job struct {
	fn   func() error
	done chan error
}

// BadgerWorld реализация world.Store поверх BadgerDB.
//
// Каждая непустая ячейка хранится отдельным ключем "w:<мир>:c:<cx>:<cz>:<x>:<y>:<z>".
// Колонки чанков лениво подгружаются в память. Записи одной задачи RunExclusive
// накапливаются и фиксируются одним батчем после ее завершения.
type BadgerWorld struct {
	world.Bounds

	db     *badger.DB
	dbPath string

	mu     sync.RWMutex
	chunks map[chunkCoords]map[vec.Vec3]block.Descriptor
	dirty  map[vec.Vec3]block.Descriptor

	jobs      chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// OnPhysics вызывается для записей с notifyPhysics=true
	OnPhysics func(pos vec.Vec3, d block.Descriptor)
}

// OpenBadgerWorld открывает (или создает) мир в каталоге dataPath/<name>
func OpenBadgerWorld(dataPath, name string, minHeight, maxHeight int) (*BadgerWorld, error) {
	dbPath := filepath.Join(dataPath, name)
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	w := &BadgerWorld{
		Bounds: world.NewBounds(name, minHeight, maxHeight),
		db:     db,
		dbPath: dbPath,
		chunks: make(map[chunkCoords]map[vec.Vec3]block.Descriptor),
		dirty:  make(map[vec.Vec3]block.Descriptor),
		jobs:   make(chan job, 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	logging.Info("💾 Мир %s открыт в %s", name, dbPath)
	return w, nil
}

// Path каталог базы
func (w *BadgerWorld) Path() string { return w.dbPath }

func (w *BadgerWorld) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			err := w.safeRun(j.fn)
			if flushErr := w.flush(); flushErr != nil {
				logging.Error("Мир %s: не удалось сохранить изменения: %v", w.WorldName, flushErr)
				if err == nil {
					err = flushErr
				}
			}
			j.done <- err
		}
	}
}

func (w *BadgerWorld) safeRun(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Паника в задаче мира %s: %v", w.WorldName, r)
			err = fmt.Errorf("world task panic: %v", r)
		}
	}()
	return fn()
}

// RunExclusive ставит fn в очередь мира и ждет результата вместе с фиксацией записей
func (w *BadgerWorld) RunExclusive(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case <-w.quit:
		return world.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.jobs <- j:
	}
	select {
	case err := <-j.done:
		return err
	case <-w.done:
		return world.ErrClosed
	}
}

// Close останавливает горутину мира и закрывает базу
func (w *BadgerWorld) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.quit)
		<-w.done
		err = w.db.Close()
	})
	return err
}

func chunkOf(pos vec.Vec3) chunkCoords {
	return chunkCoords{X: pos.X >> chunkShift, Z: pos.Z >> chunkShift}
}

func (w *BadgerWorld) chunkPrefix(c chunkCoords) []byte {
	return []byte(fmt.Sprintf("w:%s:c:%d:%d:", w.WorldName, c.X, c.Z))
}

func (w *BadgerWorld) cellKey(pos vec.Vec3) []byte {
	return append(w.chunkPrefix(chunkOf(pos)), fmt.Sprintf("%d:%d:%d", pos.X, pos.Y, pos.Z)...)
}

// loadChunk читает колонку из базы; вызывается под w.mu
func (w *BadgerWorld) loadChunk(c chunkCoords) (map[vec.Vec3]block.Descriptor, error) {
	if cells, ok := w.chunks[c]; ok {
		return cells, nil
	}

	prefix := w.chunkPrefix(c)
	cells := make(map[vec.Vec3]block.Descriptor)
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 256})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var pos vec.Vec3
			rest := bytes.TrimPrefix(item.Key(), prefix)
			if _, err := fmt.Sscanf(string(rest), "%d:%d:%d", &pos.X, &pos.Y, &pos.Z); err != nil {
				logging.Warn("Мир %s: ошибка парсинга ключа '%s': %v", w.WorldName, item.Key(), err)
				continue
			}
			var d block.Descriptor
			if err := item.Value(d.UnmarshalBinary); err != nil {
				return fmt.Errorf("ячейка %s: %w", pos, err)
			}
			cells[pos] = d
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	w.chunks[c] = cells
	return cells, nil
}

// Cell возвращает дескриптор ячейки; отсутствующие ячейки пусты
func (w *BadgerWorld) Cell(pos vec.Vec3) (block.Descriptor, error) {
	if !world.InHeight(w, pos.Y) {
		return block.Air, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cells, err := w.loadChunk(chunkOf(pos))
	if err != nil {
		return block.Air, err
	}
	if d, ok := cells[pos]; ok {
		return d, nil
	}
	return block.Air, nil
}

// SetCell записывает дескриптор; на диск он попадает по завершении текущей задачи
func (w *BadgerWorld) SetCell(pos vec.Vec3, d block.Descriptor, notifyPhysics bool) error {
	if !world.InHeight(w, pos.Y) {
		return world.ErrOutOfBounds
	}
	w.mu.Lock()
	cells, err := w.loadChunk(chunkOf(pos))
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if d.IsAir() {
		delete(cells, pos)
	} else {
		cells[pos] = d
	}
	w.dirty[pos] = d
	w.mu.Unlock()

	if notifyPhysics && w.OnPhysics != nil {
		w.OnPhysics(pos, d)
	}
	return nil
}

// flush фиксирует накопленные записи одним батчем.
// При ошибке кэш сбрасывается, чтобы следующие чтения шли из базы.
func (w *BadgerWorld) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.dirty) == 0 {
		return nil
	}

	wb := w.db.NewWriteBatch()
	defer wb.Cancel()
	err := func() error {
		for pos, d := range w.dirty {
			key := w.cellKey(pos)
			if d.IsAir() {
				if err := wb.Delete(key); err != nil {
					return err
				}
				continue
			}
			data, err := d.MarshalBinary()
			if err != nil {
				return err
			}
			if err := wb.Set(key, data); err != nil {
				return err
			}
		}
		return wb.Flush()
	}()

	count := len(w.dirty)
	w.dirty = make(map[vec.Vec3]block.Descriptor)
	if err != nil {
		w.chunks = make(map[chunkCoords]map[vec.Vec3]block.Descriptor)
		return fmt.Errorf("ошибка сохранения %d ячеек в BadgerDB: %w", count, err)
	}
	logging.Trace("Мир %s: сохранено %d ячеек", w.WorldName, count)
	return nil
}

// CellCount число непустых ячеек в базе
func (w *BadgerWorld) CellCount() (int, error) {
	prefix := []byte(fmt.Sprintf("w:%s:c:", w.WorldName))
	n := 0
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// DropCache выгружает колонки из памяти; данные остаются в базе
func (w *BadgerWorld) DropCache() {
	w.mu.Lock()
	w.chunks = make(map[chunkCoords]map[vec.Vec3]block.Descriptor)
	w.mu.Unlock()
}
