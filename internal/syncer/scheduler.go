package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler triggers background sync passes: a periodic interval tick plus a
// debounced trigger fired after local mutations. Passes are best-effort;
// failures are logged and the queue simply waits for the next trigger.
type Scheduler struct {
	manager  *Manager
	userID   string
	interval time.Duration // <= 0 disables the periodic tick
	debounce time.Duration // quiet window after a Notify before syncing

	notify chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewScheduler creates a scheduler for one user's queue.
func NewScheduler(manager *Manager, userID string, interval, debounce time.Duration) *Scheduler {
	return &Scheduler{
		manager:  manager,
		userID:   userID,
		interval: interval,
		debounce: debounce,
		notify:   make(chan struct{}, 1),
	}
}

// Start launches the background loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx)
}

// Stop halts the background loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

// Notify signals that a local mutation happened. The loop coalesces bursts:
// the pass runs once the debounce window has been quiet. Never blocks.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.run(ctx)
		case <-s.notify:
			if debounce == nil {
				debounce = time.NewTimer(s.debounce)
				fire = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(s.debounce)
			}
		case <-fire:
			debounce = nil
			fire = nil
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	ok, result, err := s.manager.ForceSyncNow(ctx, s.userID)
	switch {
	case err != nil:
		slog.Debug("background sync", "err", err)
	case result == nil:
		slog.Debug("background sync skipped: offline")
	case !ok:
		slog.Debug("background sync partial", "synced", result.Synced, "failed", len(result.Errors))
	}
}
