package engine

import (
	"context"
	"sync"

	"github.com/annel0/worldedit/internal/history"
)

// Future единственная точка завершения операции: один результат или одна ошибка.
// Повторные попытки завершения игнорируются.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	cs        *history.ChangeSet
	err       error
	callbacks []func()
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Completed возвращает уже завершенный успехом Future
func Completed(cs *history.ChangeSet) *Future {
	f := newFuture()
	f.settle(cs, nil)
	return f
}

// Failed возвращает уже завершенный ошибкой Future
func Failed(err error) *Future {
	f := newFuture()
	f.settle(nil, err)
	return f
}

func (f *Future) settle(cs *history.ChangeSet, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.cs, f.err = cs, err
	close(f.done)
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return true
}

// whenDone вызывает fn после завершения; если Future уже завершен, сразу
func (f *Future) whenDone(fn func()) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// Done закрывается при завершении
func (f *Future) Done() <-chan struct{} { return f.done }

// Result результат завершенного Future; до завершения возвращает (nil, nil)
func (f *Future) Result() (*history.ChangeSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cs, f.err
}

// Wait ждет завершения или отмены ctx. Отмена ctx не отменяет саму операцию.
func (f *Future) Wait(ctx context.Context) (*history.ChangeSet, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then продолжает цепочку: после успеха f вызывает next с его результатом и
// возвращает Future итога next. Ошибка f передается дальше без вызова next.
// next == nil или возвращенный nil завершают цепочку результатом f.
func Then(f *Future, next func(cs *history.ChangeSet) *Future) *Future {
	out := newFuture()
	f.whenDone(func() {
		cs, err := f.Result()
		if err != nil || next == nil {
			out.settle(cs, err)
			return
		}
		nf := next(cs)
		if nf == nil {
			out.settle(cs, nil)
			return
		}
		nf.whenDone(func() { out.settle(nf.Result()) })
	})
	return out
}
