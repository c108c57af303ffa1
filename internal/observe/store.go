// Package observe holds a value and broadcasts changes to subscribers.
package observe

import "sync"

// Store is a concurrency-safe observable value. Subscribers are called synchronously, outside the
// lock, in subscription order, and only when the value actually changes.
type Store[T comparable] struct {
	mu     sync.Mutex
	value  T
	nextID int
	order  []int
	subs   map[int]func(T)
}

// NewStore creates a store holding initial.
func NewStore[T comparable](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers if it changed. It reports whether it did.
func (s *Store[T]) Set(v T) bool {
	s.mu.Lock()
	if s.value == v {
		s.mu.Unlock()
		return false
	}
	s.value = v
	fns := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
	return true
}

// Subscribe registers fn and returns a function that removes it. The cancel function is
// idempotent.
func (s *Store[T]) Subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store[T]) snapshotLocked() []func(T) {
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	return fns
}
