package cache

import (
	"context"
	"sync"
	"time"
)

// Janitor periodically prunes expired entries so they do not linger until
// the next read of their key.
type Janitor struct {
	manager  *Manager
	interval time.Duration

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewJanitor creates a janitor that prunes m every interval.
func NewJanitor(m *Manager, interval time.Duration) *Janitor {
	return &Janitor{
		manager:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the janitor in a goroutine until ctx is done or Stop is called.
// Calls after the first, or after Stop, do nothing.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.started = true
	go j.run(ctx)
}

// Stop halts the janitor and waits for its goroutine to exit. It returns
// immediately when the janitor was never started.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.started {
		// Keep a later Start from launching a goroutine nobody stops.
		j.started = true
		close(j.done)
	}
	j.mu.Unlock()

	j.stopOnce.Do(func() { close(j.stopCh) })
	<-j.done
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.manager.Prune()
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		}
	}
}
