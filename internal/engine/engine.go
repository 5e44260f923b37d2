// Package engine исполняет правки в порядке поступления с ограничением параллельности.
//
// Планировщик на каждом тике запускает головные задачи очереди, пока есть свободные
// разрешения семафора. Порядок запуска строго FIFO; порядок завершения при
// MaxConcurrent > 1 не гарантируется. Выполняющиеся правки не прерываются.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/notify"
	"github.com/annel0/worldedit/internal/observability"
	"github.com/annel0/worldedit/internal/operation"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxConcurrent = 1
	DefaultTickInterval  = 5 * time.Millisecond
)

// Config параметры движка
type Config struct {
	MaxConcurrent int
	TickInterval  time.Duration
	// Logger nil = компонентный логгер "engine"
	Logger *logging.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Logger == nil {
		c.Logger = logging.GetComponentLogger("engine")
	}
	return c
}

type task struct {
	info   Task
	future *Future
}

// Engine очередь правок. Завершенные наборы изменений передаются в history.Manager.
type Engine struct {
	cfg       Config
	sem       *semaphore.Weighted
	history   *history.Manager
	notifier  notify.Notifier
	observers []Observer
	logger    *logging.Logger

	mu      sync.Mutex
	queue   []*task
	started bool
	closed  bool
	// inflight задачи, взятые из очереди, чей Future еще не завершен
	inflight int

	active   atomic.Int64
	quit     chan struct{}
	loopDone chan struct{}
}

// New создает движок. hist может быть nil: тогда наборы изменений не записываются.
func New(cfg Config, hist *history.Manager, n notify.Notifier, observers ...Observer) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		history:   hist,
		notifier:  n,
		observers: observers,
		logger:    cfg.Logger,
		quit:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
}

// Config действующие параметры
func (e *Engine) Config() Config { return e.cfg }

// Start запускает планировщик. Повторный вызов ничего не делает.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	go e.loop()
	e.logger.Info("🚀 Движок правок запущен (параллельность %d, тик %v)", e.cfg.MaxConcurrent, e.cfg.TickInterval)
}

func (e *Engine) loop() {
	defer close(e.loopDone)
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-e.quit:
			return
		}
	}
}

// tick запускает задачи из головы очереди, пока есть разрешения
func (e *Engine) tick() {
	for {
		e.mu.Lock()
		if e.closed || len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		if !e.sem.TryAcquire(1) {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.active.Add(1)
		e.inflight++
		e.mu.Unlock()

		go e.run(t)
	}
}

// Submit ставит правку в очередь и сразу возвращает Future.
// После Shutdown Future завершается ошибкой errs.ErrCancelled.
func (e *Engine) Submit(op operation.Operation) *Future {
	if op == nil {
		return Failed(errs.Invalid("operation", "operation is required"))
	}
	t := &task{
		info:   Task{ID: uuid.New(), Op: op, QueuedAt: time.Now()},
		future: newFuture(),
	}

	if est := op.EstimatedCells(); est > 0 {
		notify.Notifyf(e.notifier, op.Actor(), notify.LevelInfo, "Queueing operation: %s (%d cells)", op.Name(), est)
	} else {
		notify.Notifyf(e.notifier, op.Actor(), notify.LevelInfo, "Queueing operation: %s", op.Name())
	}
	for _, o := range e.observers {
		o.OnQueued(t.info)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.cancel(t)
		return t.future
	}
	e.queue = append(e.queue, t)
	e.mu.Unlock()
	e.logger.Debug("В очереди %s [%s], актор %s", op.Name(), t.info.ID, actorName(op.Actor()))
	return t.future
}

func (e *Engine) run(t *task) {
	defer e.finish()
	op := t.info.Op
	t.info.StartedAt = time.Now()
	for _, o := range e.observers {
		o.OnStarted(t.info)
	}
	e.logger.Debug("Выполняется %s [%s]", op.Name(), t.info.ID)

	ctx, span := observability.StartOperation(context.Background(), op.Kind(), op.Name(), actorName(op.Actor()), op.EstimatedCells())
	cs, err := execute(ctx, op)
	t.info.Duration = time.Since(t.info.StartedAt)

	e.active.Add(-1)
	e.sem.Release(1)

	if err != nil {
		observability.EndOperation(span, 0, err)
		execErr := &errs.ExecutionError{Operation: op.Name(), Err: err}
		e.logger.Error("Операция %s [%s] завершилась ошибкой за %v: %v", op.Name(), t.info.ID, t.info.Duration, err)
		notify.Notifyf(e.notifier, op.Actor(), notify.LevelError, "Operation %s failed after %dms: %v",
			op.Name(), t.info.Duration.Milliseconds(), err)
		for _, o := range e.observers {
			o.OnFailed(t.info, execErr)
		}
		t.future.settle(nil, execErr)
		return
	}

	changed := 0
	if cs != nil {
		changed = cs.Len()
	}
	observability.EndOperation(span, changed, nil)
	if changed > 0 && e.history != nil {
		e.history.Record(op.Actor(), cs)
	}
	e.logger.Info("Операция %s [%s] выполнена за %v, изменено %d ячеек", op.Name(), t.info.ID, t.info.Duration, changed)
	if changed > 0 {
		notify.Notifyf(e.notifier, op.Actor(), notify.LevelInfo, "Operation %s completed in %dms. Modified %d cells.",
			op.Name(), t.info.Duration.Milliseconds(), changed)
	} else {
		notify.Notifyf(e.notifier, op.Actor(), notify.LevelInfo, "Operation %s completed in %dms. No cells were changed.",
			op.Name(), t.info.Duration.Milliseconds())
	}
	for _, o := range e.observers {
		o.OnCompleted(t.info, cs)
	}
	t.future.settle(cs, nil)
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.inflight--
	e.mu.Unlock()
}

// execute вызывает Execute, превращая панику в ошибку
func execute(ctx context.Context, op operation.Operation) (cs *history.ChangeSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			cs, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return op.Execute(ctx)
}

func (e *Engine) cancel(t *task) {
	for _, o := range e.observers {
		o.OnCancelled(t.info)
	}
	t.future.settle(nil, errs.ErrCancelled)
}

// Shutdown останавливает планировщик и отменяет все не начатые задачи.
// Выполняющиеся задачи доводятся до конца, их наборы изменений записываются в историю.
// Возвращает число отмененных задач.
func (e *Engine) Shutdown() int {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0
	}
	e.closed = true
	pending := e.queue
	e.queue = nil
	started := e.started
	e.mu.Unlock()

	close(e.quit)
	if started {
		<-e.loopDone
	}

	e.logger.Info("🛑 Движок правок остановлен, отменено задач в очереди: %d", len(pending))
	for _, t := range pending {
		e.cancel(t)
	}
	return len(pending)
}

// QueueDepth число задач, ожидающих запуска
func (e *Engine) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// ActiveCount число выполняющихся задач
func (e *Engine) ActiveCount() int { return int(e.active.Load()) }

// WaitIdle ждет, пока очередь опустеет и все взятые задачи завершатся:
// история записана, наблюдатели уведомлены, Future завершен.
func (e *Engine) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		if e.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue) == 0 && e.inflight == 0
}

func actorName(id uuid.UUID) string {
	if id == uuid.Nil {
		return "console"
	}
	return id.String()
}
