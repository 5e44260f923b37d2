// Package eventbus публикует события правок во внешнюю шину: в память процесса
// или в NATS JetStream.
package eventbus

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Типы событий правок
const (
	TypeEditQueued    = "EditQueued"
	TypeEditStarted   = "EditStarted"
	TypeEditCompleted = "EditCompleted"
	TypeEditFailed    = "EditFailed"
	TypeEditCancelled = "EditCancelled"
)

// Envelope контейнер события. Payload кодируется отдельно (см. EncodeEdit).
type Envelope struct {
	ID            string            // UUID события
	Timestamp     time.Time         // Время создания (UTC)
	Source        string            // Имя узла-источника
	EventType     string            // Тип события, например EditCompleted
	Version       int               // Версия схемы полезной нагрузки
	CorrelationID string            // ID задачи движка
	Priority      int               // 0=Low … 9=Critical, низкие отбрасываются при переполнении
	Payload       []byte            // Сжатая полезная нагрузка
	Metadata      map[string]string // Кодировка, актор и т.п.
}

// Filter отбор событий подписчиком; пустой список означает "все"
type Filter struct {
	Types   []string
	Sources []string
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребитель событий
type Handler func(ctx context.Context, ev *Envelope)

// Stats счетчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus абстракция шины событий
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

// dropBelow приоритет, ниже которого события отбрасываются при полном буфере
const dropBelow = 5

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	closeOnce   sync.Once
	done        chan struct{}
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создает шину в памяти с буфером capacity
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 256
	}
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.done:
		return ErrClosed
	default:
	}

	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	default:
	}

	if ev.Priority < dropBelow {
		mb.count(func(s *Stats) { s.Dropped++ })
		return nil
	}
	// Важные события ждут места в буфере
	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	case <-mb.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *memoryBus) count(fn func(*Stats)) {
	mb.mu.Lock()
	fn(&mb.stats)
	mb.mu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

// Close прекращает прием событий; уже принятые доставляются
func (mb *memoryBus) Close() error {
	mb.closeOnce.Do(func() { close(mb.done) })
	return nil
}

// dispatchLoop доставляет события подписчикам в порядке публикации
func (mb *memoryBus) dispatchLoop() {
	for {
		select {
		case ev := <-mb.buffer:
			mb.dispatch(ev)
		case <-mb.done:
			for {
				select {
				case ev := <-mb.buffer:
					mb.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (mb *memoryBus) dispatch(ev *Envelope) {
	mb.mu.RLock()
	subs := make([]subscriber, 0, len(mb.subscribers))
	for _, sub := range mb.subscribers {
		subs = append(subs, sub)
	}
	mb.mu.RUnlock()

	for _, sub := range subs {
		if !matchFilter(ev, sub.filter) || sub.ctx.Err() != nil {
			continue
		}
		sub.handler(sub.ctx, ev)
		mb.count(func(s *Stats) { s.Consumed++ })
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		return len(arr) == 0 || slices.Contains(arr, val)
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
