package journal

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/logging"
)

var _ engine.Observer = (*Recorder)(nil)

// Recorder наблюдатель движка, копящий итоги задач в буфере.
// Буфер сбрасывается в Store по таймеру или при заполнении из фоновой горутины.
type Recorder struct {
	engine.NopObserver

	store      Store
	batchSize  int
	flushEvery time.Duration
	timeout    time.Duration

	mu     sync.Mutex
	buffer []Entry

	kick     chan struct{}
	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRecorder запускает фоновый сброс. batchSize <= 0 означает 64, flushEvery <= 0 означает секунду.
func NewRecorder(store Store, batchSize int, flushEvery time.Duration) *Recorder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	r := &Recorder{
		store:      store,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		timeout:    5 * time.Second,
		kick:       make(chan struct{}, 1),
		shutdown:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.batchFlusher()
	return r
}

// Store хранилище, в которое пишет рекордер
func (r *Recorder) Store() Store { return r.store }

func (r *Recorder) batchFlusher() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdown:
			r.flush()
			return
		case <-ticker.C:
			r.flush()
		case <-r.kick:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	if len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Append(ctx, batch); err != nil {
		logging.Error("❌ journal: не удалось сохранить %d записей: %v", len(batch), err)
	}
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	r.buffer = append(r.buffer, e)
	full := len(r.buffer) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

// Close сбрасывает буфер и останавливает фоновую горутину. Store не закрывается.
func (r *Recorder) Close() {
	r.once.Do(func() { close(r.shutdown) })
	r.wg.Wait()
}

func entryOf(t engine.Task, status string) Entry {
	e := Entry{
		TaskID:     t.ID,
		Actor:      t.Op.Actor(),
		Kind:       t.Op.Kind(),
		Name:       t.Op.Name(),
		Status:     status,
		QueuedAt:   t.QueuedAt,
		DurationMs: t.Duration.Milliseconds(),
		RecordedAt: time.Now().UTC(),
	}
	if reg := t.Op.Region(); reg != nil {
		e.World = reg.World().Name()
		e.Bounds = reg.Bounds().String()
	}
	return e
}

func (r *Recorder) OnCompleted(t engine.Task, cs *history.ChangeSet) {
	e := entryOf(t, StatusCompleted)
	if cs != nil {
		e.Changed = cs.Len()
	}
	r.add(e)
}

func (r *Recorder) OnFailed(t engine.Task, err error) {
	e := entryOf(t, StatusFailed)
	e.Error = err.Error()
	r.add(e)
}

func (r *Recorder) OnCancelled(t engine.Task) {
	r.add(entryOf(t, StatusCancelled))
}
