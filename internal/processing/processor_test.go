package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		done = make(chan struct{}, 3)
	)
	p := New(func(_ context.Context, id string) error {
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, 2)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for _, id := range []string{"a", "b", "c"} {
		if err := p.Dispatch(ctx, id); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", id, err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	cancel()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("processed %v", seen)
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := New(func(context.Context, string) error { return nil }, 1)
	// workers not started, so the buffer fills up
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = p.Dispatch(context.Background(), "x")
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Dispatch() error = %v, want ErrQueueFull", err)
	}
}
