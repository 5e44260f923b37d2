package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/notify"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOp операция с подменяемым телом
type fakeOp struct {
	name  string
	actor uuid.UUID
	exec  func(ctx context.Context) (*history.ChangeSet, error)
}

func (f *fakeOp) Kind() string           { return "fake" }
func (f *fakeOp) Name() string           { return f.name }
func (f *fakeOp) Actor() uuid.UUID       { return f.actor }
func (f *fakeOp) Region() region.Region  { return nil }
func (f *fakeOp) EstimatedCells() uint64 { return 0 }

func (f *fakeOp) Execute(ctx context.Context) (*history.ChangeSet, error) {
	return f.exec(ctx)
}

func testConfig(n int) Config {
	return Config{
		MaxConcurrent: n,
		TickInterval:  time.Millisecond,
		Logger:        logging.NewWriterLogger("engine", io.Discard, logging.ERROR),
	}
}

func changeSet(w world.Store, cells int) *history.ChangeSet {
	cs := history.NewChangeSet(w, "fake")
	for i := 0; i < cells; i++ {
		_ = cs.Record(vec.Vec3{X: i}, block.Air, block.MustParse("stone"))
	}
	return cs
}

func waitAll(t *testing.T, futures []*Future) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range futures {
		_, err := f.Wait(ctx)
		require.NoError(t, err)
	}
}

// concurrencyTracker считает одновременно выполняющиеся операции
type concurrencyTracker struct {
	mu      sync.Mutex
	order   []int
	current atomic.Int32
	peak    atomic.Int32
}

func (p *concurrencyTracker) op(i int, hold time.Duration) *fakeOp {
	return &fakeOp{name: "tracked", exec: func(context.Context) (*history.ChangeSet, error) {
		n := p.current.Add(1)
		for {
			peak := p.peak.Load()
			if n <= peak || p.peak.CompareAndSwap(peak, n) {
				break
			}
		}
		p.mu.Lock()
		p.order = append(p.order, i)
		p.mu.Unlock()
		time.Sleep(hold)
		p.current.Add(-1)
		return nil, nil
	}}
}

func TestSerialEngineKeepsSubmissionOrder(t *testing.T) {
	e := New(testConfig(1), nil, nil)
	e.Start()
	defer e.Shutdown()

	tracker := &concurrencyTracker{}
	var futures []*Future
	for i := 0; i < 10; i++ {
		futures = append(futures, e.Submit(tracker.op(i, time.Millisecond)))
	}
	waitAll(t, futures)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, tracker.order, "Запуск строго в порядке поступления")
	assert.Equal(t, int32(1), tracker.peak.Load(), "Операции не пересекаются")
}

func TestConcurrencyLimit(t *testing.T) {
	e := New(testConfig(3), nil, nil)
	e.Start()
	defer e.Shutdown()

	// ActiveCount не должен превышать лимит даже между завершением и следующим запуском
	var activePeak atomic.Int64
	stopPoll := make(chan struct{})
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-stopPoll:
				return
			default:
			}
			if n := int64(e.ActiveCount()); n > activePeak.Load() {
				activePeak.Store(n)
			}
		}
	}()

	tracker := &concurrencyTracker{}
	var futures []*Future
	for i := 0; i < 12; i++ {
		futures = append(futures, e.Submit(tracker.op(i, 5*time.Millisecond)))
	}
	waitAll(t, futures)
	close(stopPoll)
	<-polled

	assert.LessOrEqual(t, tracker.peak.Load(), int32(3), "Не больше трех одновременно")
	assert.LessOrEqual(t, activePeak.Load(), int64(3), "ActiveCount не превышает лимит")
	assert.Len(t, tracker.order, 12)
	assert.Equal(t, 0, e.ActiveCount())
	assert.Equal(t, 0, e.QueueDepth())
}

func TestShutdownCancelsQueued(t *testing.T) {
	e := New(testConfig(1), nil, nil)

	var futures []*Future
	for i := 0; i < 5; i++ {
		futures = append(futures, e.Submit(&fakeOp{name: "queued", exec: func(context.Context) (*history.ChangeSet, error) {
			t.Error("отмененная операция не должна выполняться")
			return nil, nil
		}}))
	}
	assert.Equal(t, 5, e.QueueDepth())
	assert.Equal(t, 5, e.Shutdown())

	for _, f := range futures {
		select {
		case <-f.Done():
		default:
			t.Fatal("Future должен быть завершен сразу")
		}
		_, err := f.Result()
		assert.ErrorIs(t, err, errs.ErrCancelled)
	}
	assert.Equal(t, 0, e.QueueDepth())
	assert.Equal(t, 0, e.Shutdown(), "Повторная остановка ничего не делает")

	_, err := e.Submit(&fakeOp{name: "late"}).Result()
	assert.ErrorIs(t, err, errs.ErrCancelled, "После остановки задачи не принимаются")
}

func TestShutdownLetsRunningFinish(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	hist := history.NewManager(10, nil)
	actor := uuid.New()

	e := New(testConfig(1), hist, nil)
	e.Start()

	release := make(chan struct{})
	running := e.Submit(&fakeOp{name: "slow", actor: actor, exec: func(context.Context) (*history.ChangeSet, error) {
		<-release
		return changeSet(w, 2), nil
	}})
	require.Eventually(t, func() bool { return e.ActiveCount() == 1 }, time.Second, time.Millisecond)

	queued := e.Submit(&fakeOp{name: "queued", actor: actor})
	assert.Equal(t, 1, e.Shutdown())
	_, err := queued.Result()
	assert.ErrorIs(t, err, errs.ErrCancelled)

	close(release)
	cs, err := running.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cs.Len())
	undo, _ := hist.Depth(actor)
	assert.Equal(t, 1, undo, "Результат выполнявшейся операции попадает в историю")
}

func TestFailureAndSuccessRouting(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	hist := history.NewManager(10, nil)
	rec := notify.NewRecorder(20)
	actor := uuid.New()

	e := New(testConfig(1), hist, rec)
	e.Start()
	defer e.Shutdown()

	boom := errors.New("store failure")
	failed := e.Submit(&fakeOp{name: "broken", actor: actor, exec: func(context.Context) (*history.ChangeSet, error) {
		return changeSet(w, 3), boom
	}})
	panicked := e.Submit(&fakeOp{name: "panic", actor: actor, exec: func(context.Context) (*history.ChangeSet, error) {
		panic("unexpected")
	}})
	empty := e.Submit(&fakeOp{name: "noop", actor: actor, exec: func(context.Context) (*history.ChangeSet, error) {
		return changeSet(w, 0), nil
	}})
	ok := e.Submit(&fakeOp{name: "good", actor: actor, exec: func(context.Context) (*history.ChangeSet, error) {
		return changeSet(w, 4), nil
	}})

	ctx := context.Background()
	_, err := failed.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsExecution(err))
	assert.ErrorIs(t, err, boom)

	_, err = panicked.Wait(ctx)
	assert.True(t, errs.IsExecution(err), "Паника превращается в ошибку выполнения")

	_, err = empty.Wait(ctx)
	require.NoError(t, err)
	cs, err := ok.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cs.Len())

	stack := hist.UndoStack(actor)
	require.Len(t, stack, 1, "В историю попадает только успешный непустой набор")
	assert.Same(t, cs, stack[0])

	var errorsSeen int
	for _, m := range rec.Messages(actor) {
		if m.Level == notify.LevelError {
			errorsSeen++
		}
	}
	assert.Equal(t, 2, errorsSeen)
}

// countingObserver считает события
type countingObserver struct {
	queued, started, completed, failed, cancelled atomic.Int32
}

func (o *countingObserver) OnQueued(Task)                        { o.queued.Add(1) }
func (o *countingObserver) OnStarted(Task)                       { o.started.Add(1) }
func (o *countingObserver) OnCompleted(Task, *history.ChangeSet) { o.completed.Add(1) }
func (o *countingObserver) OnFailed(Task, error)                 { o.failed.Add(1) }
func (o *countingObserver) OnCancelled(Task)                     { o.cancelled.Add(1) }

func TestObserversAndWaitIdle(t *testing.T) {
	obs := &countingObserver{}
	e := New(testConfig(2), nil, nil, obs)
	e.Start()

	for i := 0; i < 3; i++ {
		e.Submit(&fakeOp{name: "ok", exec: func(context.Context) (*history.ChangeSet, error) { return nil, nil }})
	}
	e.Submit(&fakeOp{name: "bad", exec: func(context.Context) (*history.ChangeSet, error) { return nil, errors.New("x") }})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.WaitIdle(ctx))
	e.Shutdown()

	assert.Equal(t, int32(4), obs.queued.Load())
	assert.Equal(t, int32(4), obs.started.Load())
	assert.Equal(t, int32(3), obs.completed.Load())
	assert.Equal(t, int32(1), obs.failed.Load())
	assert.Equal(t, int32(0), obs.cancelled.Load())
}

// slowObserver долго обрабатывает завершение
type slowObserver struct {
	NopObserver
	delay     time.Duration
	completed atomic.Int32
}

func (o *slowObserver) OnCompleted(Task, *history.ChangeSet) {
	time.Sleep(o.delay)
	o.completed.Add(1)
}

func TestWaitIdleWaitsForCompletionDelivery(t *testing.T) {
	obs := &slowObserver{delay: 100 * time.Millisecond}
	e := New(testConfig(1), nil, nil, obs)
	e.Start()
	defer e.Shutdown()

	f := e.Submit(&fakeOp{name: "noop", exec: func(context.Context) (*history.ChangeSet, error) { return nil, nil }})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.WaitIdle(ctx))

	select {
	case <-f.Done():
	default:
		t.Fatal("Future не завершен к моменту простоя")
	}
	assert.Equal(t, int32(1), obs.completed.Load(), "наблюдатель уже получил завершение")
	assert.Zero(t, e.ActiveCount())
}

func TestThenChainsOnSuccessOnly(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	ctx := context.Background()

	first := changeSet(w, 1)
	second := changeSet(w, 2)
	var gotFirst *history.ChangeSet
	chained := Then(Completed(first), func(cs *history.ChangeSet) *Future {
		gotFirst = cs
		return Completed(second)
	})
	cs, err := chained.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, first, gotFirst)
	assert.Same(t, second, cs)

	called := false
	failed := Then(Failed(errs.ErrCancelled), func(*history.ChangeSet) *Future {
		called = true
		return nil
	})
	_, err = failed.Wait(ctx)
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.False(t, called, "После ошибки продолжение не вызывается")

	pending := newFuture()
	chained = Then(pending, nil)
	select {
	case <-chained.Done():
		t.Fatal("Цепочка завершилась раньше источника")
	default:
	}
	pending.settle(second, nil)
	cs, err = chained.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, second, cs)
	assert.False(t, pending.settle(first, nil), "Повторное завершение игнорируется")
}

func TestWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newFuture().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
