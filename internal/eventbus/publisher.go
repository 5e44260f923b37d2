package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxChanges сколько изменений ячеек включается в EditCompleted
const DefaultMaxChanges = 4096

var _ engine.Observer = (*Publisher)(nil)

// Publisher наблюдатель движка, превращающий события задач в сообщения шины.
// Публикация идет из собственной горутины, движок не ждет шину.
type Publisher struct {
	bus        EventBus
	source     string
	maxChanges int
	timeout    time.Duration

	queue chan *Envelope
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewPublisher создает публикатор. maxChanges <= 0 означает DefaultMaxChanges.
func NewPublisher(bus EventBus, source string, maxChanges int) *Publisher {
	if maxChanges <= 0 {
		maxChanges = DefaultMaxChanges
	}
	p := &Publisher{
		bus:        bus,
		source:     source,
		maxChanges: maxChanges,
		timeout:    2 * time.Second,
		queue:      make(chan *Envelope, 1024),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Publisher) loop() {
	defer close(p.done)
	for {
		select {
		case env := <-p.queue:
			p.send(env)
		case <-p.quit:
			for {
				select {
				case env := <-p.queue:
					p.send(env)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(env *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, env); err != nil {
		logging.Warn("eventbus: публикация %s [%s] не удалась: %v", env.EventType, env.CorrelationID, err)
	}
}

// Close отправляет накопленные события и останавливает публикатор
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.quit) })
	<-p.done
}

func (p *Publisher) emit(eventType string, priority int, ev *EditEvent) {
	payload, err := EncodeEdit(ev)
	if err != nil {
		logging.Warn("eventbus: событие %s не закодировано: %v", eventType, err)
		return
	}
	env := &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        p.source,
		EventType:     eventType,
		Version:       1,
		CorrelationID: ev.TaskID,
		Priority:      priority,
		Payload:       payload,
		Metadata:      map[string]string{"encoding": PayloadEncoding, "actor": ev.Actor},
	}
	select {
	case p.queue <- env:
	case <-p.quit:
	default:
		logging.Warn("eventbus: очередь публикатора заполнена, событие %s отброшено", eventType)
	}
}

func (p *Publisher) describe(t engine.Task) *EditEvent {
	ev := &EditEvent{
		TaskID:    t.ID.String(),
		Actor:     actorString(t.Op.Actor()),
		Kind:      t.Op.Kind(),
		Name:      t.Op.Name(),
		Estimated: t.Op.EstimatedCells(),
	}
	if r := t.Op.Region(); r != nil {
		ev.World = r.World().Name()
		ev.Bounds = r.Bounds().String()
	}
	if t.Duration > 0 {
		ev.DurationMs = t.Duration.Milliseconds()
	}
	return ev
}

func (p *Publisher) OnQueued(t engine.Task) {
	p.emit(TypeEditQueued, 1, p.describe(t))
}

func (p *Publisher) OnStarted(t engine.Task) {
	p.emit(TypeEditStarted, 1, p.describe(t))
}

func (p *Publisher) OnCompleted(t engine.Task, cs *history.ChangeSet) {
	ev := p.describe(t)
	if cs != nil {
		ev.Changed = cs.Len()
		changes := cs.Head(p.maxChanges)
		ev.Truncated = len(changes) < ev.Changed
		ev.Changes = make([]CellChange, len(changes))
		for i, c := range changes {
			ev.Changes[i] = CellChange{X: c.Pos.X, Y: c.Pos.Y, Z: c.Pos.Z, Old: c.Old.String(), New: c.New.String()}
		}
	}
	p.emit(TypeEditCompleted, 7, ev)
}

func (p *Publisher) OnFailed(t engine.Task, err error) {
	ev := p.describe(t)
	ev.Error = err.Error()
	p.emit(TypeEditFailed, 7, ev)
}

func (p *Publisher) OnCancelled(t engine.Task) {
	p.emit(TypeEditCancelled, 5, p.describe(t))
}

func actorString(id uuid.UUID) string {
	if id == uuid.Nil {
		return "console"
	}
	return id.String()
}
