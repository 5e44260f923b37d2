package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultPerActor лимит записей на актора
const DefaultPerActor = 200

// MemoryStore хранит журнал в памяти.
// Используется по умолчанию и в тестах; данные теряются при перезапуске.
type MemoryStore struct {
	mu       sync.RWMutex
	perActor int
	entries  map[uuid.UUID][]Entry // от старых к новым
	closed   bool
}

// NewMemoryStore создает хранилище; perActor <= 0 означает DefaultPerActor
func NewMemoryStore(perActor int) *MemoryStore {
	if perActor <= 0 {
		perActor = DefaultPerActor
	}
	return &MemoryStore{
		perActor: perActor,
		entries:  make(map[uuid.UUID][]Entry),
	}
}

func (s *MemoryStore) Append(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, e := range entries {
		list := append(s.entries[e.Actor], e)
		if over := len(list) - s.perActor; over > 0 {
			list = append(list[:0:0], list[over:]...)
		}
		s.entries[e.Actor] = list
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, actor uuid.UUID, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	list := s.entries[actor]
	n := min(recentLimit(limit), len(list))
	out := make([]Entry, 0, n)
	for i := len(list) - 1; i >= len(list)-n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Len общее число записей
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, list := range s.entries {
		total += len(list)
	}
	return total
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
