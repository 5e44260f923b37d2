package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/operation"
	"github.com/annel0/worldedit/internal/pattern"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector собирает доставленные события
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Envelope(nil), c.events...)
}

func TestMemoryBusFilters(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	all, failed := &collector{}, &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeEditFailed}}, failed.handle)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "1", EventType: TypeEditQueued}))
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "2", EventType: TypeEditFailed}))

	require.Eventually(t, func() bool { return len(all.snapshot()) == 2 }, time.Second, time.Millisecond)
	got := all.snapshot()
	assert.Equal(t, "1", got[0].ID, "Порядок публикации сохраняется")
	require.Len(t, failed.snapshot(), 1)
	assert.Equal(t, "2", failed.snapshot()[0].ID)

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "3", EventType: TypeEditFailed}))
	require.Eventually(t, func() bool { return len(all.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Len(t, failed.snapshot(), 1, "После отписки события не приходят")

	assert.Equal(t, uint64(3), bus.Metrics().Published)
	assert.Eventually(t, func() bool { return bus.Metrics().Consumed == 4 }, time.Second, time.Millisecond)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	release := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { <-release })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "busy"}))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "buffered"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "low", Priority: 1}))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err = bus.Publish(short, &Envelope{ID: "high", Priority: 9})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "Важное событие ждет места в буфере")

	close(release)
	assert.Equal(t, 4, testutil.CollectAndCount(NewStatsCollector(bus)))
}

func TestClosedBusRejects(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrClosed)
}

func TestEditCodec(t *testing.T) {
	ev := &EditEvent{TaskID: "t", Actor: "console", Kind: "set", Changed: 2,
		Changes: []CellChange{{X: 1, Old: "air", New: "stone"}, {Y: 2, Old: "air", New: "oak_log[axis=x]"}}}
	payload, err := EncodeEdit(ev)
	require.NoError(t, err)

	back, err := DecodeEdit(payload)
	require.NoError(t, err)
	assert.Equal(t, ev, back)

	_, err = DecodeEdit([]byte("not zstd"))
	assert.Error(t, err)
}

func TestPublisherEmitsEditEvents(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()
	got := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)

	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	r, err := region.NewCuboid(w, vec.Vec3{}, vec.Vec3{X: 2})
	require.NoError(t, err)
	actor := uuid.New()
	op, err := operation.NewSet(actor, w, r, pattern.Single(block.MustParse("stone")))
	require.NoError(t, err)

	cs := history.NewChangeSet(w, "set")
	for x := 0; x < 3; x++ {
		require.NoError(t, cs.Record(vec.Vec3{X: x}, block.Air, block.MustParse("stone")))
	}

	pub := NewPublisher(bus, "node-1", 2)
	task := engine.Task{ID: uuid.New(), Op: op, Duration: 3 * time.Millisecond}
	pub.OnQueued(task)
	pub.OnCompleted(task, cs)
	pub.OnFailed(task, errors.New("boom"))
	pub.Close()

	require.Eventually(t, func() bool { return len(got.snapshot()) == 3 }, time.Second, time.Millisecond)
	events := got.snapshot()
	assert.Equal(t, TypeEditQueued, events[0].EventType)
	assert.Equal(t, "node-1", events[0].Source)
	assert.Equal(t, PayloadEncoding, events[0].Metadata["encoding"])

	completed, err := DecodeEdit(events[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, 3, completed.Changed)
	assert.Len(t, completed.Changes, 2)
	assert.True(t, completed.Truncated, "Список изменений обрезается")
	assert.Equal(t, actor.String(), completed.Actor)
	assert.Equal(t, "w", completed.World)
	assert.Equal(t, task.ID.String(), events[1].CorrelationID)

	failed, err := DecodeEdit(events[2].Payload)
	require.NoError(t, err)
	assert.Equal(t, "boom", failed.Error)
}

func TestPublisherKeepsChangesWithinLimit(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()
	got := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeEditCompleted}}, got.handle)
	require.NoError(t, err)

	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	r, err := region.NewCuboid(w, vec.Vec3{}, vec.Vec3{X: 1})
	require.NoError(t, err)
	op, err := operation.NewSet(uuid.Nil, w, r, pattern.Single(block.MustParse("stone")))
	require.NoError(t, err)

	cs := history.NewChangeSet(w, "set")
	require.NoError(t, cs.Record(vec.Vec3{}, block.Air, block.MustParse("stone")))
	require.NoError(t, cs.Record(vec.Vec3{X: 1}, block.Air, block.MustParse("stone")))

	pub := NewPublisher(bus, "node-1", 2)
	pub.OnCompleted(engine.Task{ID: uuid.New(), Op: op}, cs)
	pub.Close()

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, time.Millisecond)
	ev, err := DecodeEdit(got.snapshot()[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Changed)
	assert.Len(t, ev.Changes, 2)
	assert.False(t, ev.Truncated, "Лимит не превышен")
	assert.Equal(t, CellChange{X: 1, Old: "air", New: "stone"}, ev.Changes[1])
}
