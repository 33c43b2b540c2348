package ui

import (
	"sync"
)

// Store holds one piece of display state. Reads are safe from any goroutine;
// writes go through Update and are applied on the loop.
//
// Snapshots are shallow copies: values reachable through slices or maps in T
// must be replaced, never modified in place.
type Store[T any] struct {
	loop *Loop

	mu      sync.RWMutex
	state   T
	version uint64
	subs    map[uint64]func(T)
	nextID  uint64
}

// NewStore creates a store bound to loop with an initial state.
func NewStore[T any](loop *Loop, initial T) *Store[T] {
	return &Store[T]{
		loop:  loop,
		state: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version counts applied updates.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Update posts fn to the loop. The returned channel is closed once fn has
// been applied and subscribers notified, or once the loop stops.
func (s *Store[T]) Update(fn func(*T)) <-chan struct{} {
	applied := make(chan struct{})
	ok := s.loop.Post(func() {
		defer close(applied)

		s.mu.Lock()
		fn(&s.state)
		s.version++
		next := s.state
		subs := make([]func(T), 0, len(s.subs))
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
		s.mu.Unlock()

		for _, sub := range subs {
			sub(next)
		}
	})
	if !ok {
		close(applied)
		return applied
	}

	// A stopped loop drops queued tasks; release waiters anyway.
	settled := make(chan struct{})
	go func() {
		select {
		case <-applied:
		case <-s.loop.Done():
		}
		close(settled)
	}()
	return settled
}

// Subscribe registers fn to run on the loop after every update.
// The returned function removes the subscription.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
