package ui

import (
	"context"
	"sync"
	"testing"
	"time"
)

type counter struct {
	N     int
	Label string
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("update not applied")
	}
}

func TestStoreUpdateAndSnapshot(t *testing.T) {
	l := startLoop(t)
	s := NewStore(l, counter{Label: "initial"})

	if got := s.Snapshot(); got.Label != "initial" || s.Version() != 0 {
		t.Fatalf("unexpected initial state %+v", got)
	}

	wait(t, s.Update(func(c *counter) { c.N = 5; c.Label = "five" }))
	if got := s.Snapshot(); got.N != 5 || got.Label != "five" || s.Version() != 1 {
		t.Fatalf("unexpected state %+v version=%d", got, s.Version())
	}
}

func TestStoreSubscribersRunOnLoop(t *testing.T) {
	l := startLoop(t)
	s := NewStore(l, counter{})

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Subscribe(func(c counter) {
		mu.Lock()
		seen = append(seen, c.N)
		mu.Unlock()
	})
	if s.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}

	for i := 1; i <= 3; i++ {
		i := i
		s.Update(func(c *counter) { c.N = i })
	}
	wait(t, s.Update(func(c *counter) { c.N = 4 }))

	unsubscribe()
	unsubscribe()
	wait(t, s.Update(func(c *counter) { c.N = 99 }))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 4 {
		t.Fatalf("expected 4 notifications, got %v", seen)
	}
	for i, n := range seen {
		if n != i+1 {
			t.Fatalf("notification %d carried %d", i, n)
		}
	}
	if s.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
}

func TestStoreUpdateOnStoppedLoop(t *testing.T) {
	l := NewLoop(nil)
	l.Start(context.Background())
	l.Stop()

	s := NewStore(l, counter{N: 1})
	wait(t, s.Update(func(c *counter) { c.N = 2 }))
	if s.Snapshot().N != 1 {
		t.Fatalf("update applied on a stopped loop")
	}
}
