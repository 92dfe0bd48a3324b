package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/quinn/daybook/internal/models"
)

func waitForDrain(t *testing.T, st interface {
	CountPendingActions() (int64, error)
}, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if count, err := st.CountPendingActions(); err == nil && count == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("queue did not drain in time")
}

func TestSchedulerNotifyDebounce(t *testing.T) {
	st := newTestStore(t)
	backend := newFakeBackend()
	m := New(st, backend, Options{})

	queueRecord(t, st, models.TableTasks, "t1", "u1")

	s := NewScheduler(m, "u1", 0, 20*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	// A burst of notifies coalesces into one pass.
	s.Notify()
	s.Notify()
	s.Notify()

	waitForDrain(t, st, 2*time.Second)

	calls := backend.callLog()
	if len(calls) != 1 {
		t.Errorf("calls = %v, want exactly one push", calls)
	}
}

func TestSchedulerIntervalTick(t *testing.T) {
	st := newTestStore(t)
	backend := newFakeBackend()
	m := New(st, backend, Options{})

	queueRecord(t, st, models.TableTasks, "t1", "u1")

	s := NewScheduler(m, "u1", 15*time.Millisecond, time.Second)
	s.Start(context.Background())
	defer s.Stop()

	waitForDrain(t, st, 2*time.Second)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	m := New(st, newFakeBackend(), Options{})

	s := NewScheduler(m, "u1", 0, 10*time.Millisecond)
	s.Start(context.Background())
	s.Stop()
	s.Stop() // second stop must not panic or block

	// Restart works after a stop.
	s.Start(context.Background())
	s.Stop()
}
