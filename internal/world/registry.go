package world

import (
	"fmt"
	"sort"
	"sync"
)

// Registry хранит загруженные миры по имени
type Registry struct {
	mu     sync.RWMutex
	worlds map[string]Store
}

// NewRegistry создает пустой реестр миров
func NewRegistry() *Registry {
	return &Registry{worlds: make(map[string]Store)}
}

// Register добавляет мир; имя должно быть уникальным
func (r *Registry) Register(s Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.worlds[s.Name()]; exists {
		return fmt.Errorf("world %q already registered", s.Name())
	}
	r.worlds[s.Name()] = s
	return nil
}

// Get возвращает мир по имени
func (r *Registry) Get(name string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.worlds[name]
	return s, ok
}

// Resolve возвращает хранилище для Info
func (r *Registry) Resolve(info Info) (Store, error) {
	if info == nil {
		return nil, fmt.Errorf("world not set")
	}
	if s, ok := info.(Store); ok {
		return s, nil
	}
	s, ok := r.Get(info.Name())
	if !ok {
		return nil, fmt.Errorf("world %q is not loaded", info.Name())
	}
	return s, nil
}

// Names возвращает имена миров по алфавиту
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.worlds))
	for n := range r.worlds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
