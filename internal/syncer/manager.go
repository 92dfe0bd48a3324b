// Package syncer drains the mutation queue against the remote backend.
//
// A pass walks the queue in insertion order and replays each entry as an
// HTTP call. Entries are independent: one failure never rolls back or blocks
// the entries that already succeeded, and the failed entry simply stays
// queued for the next pass. Entries are retried until they succeed or are
// explicitly dead-lettered; they are never dropped automatically.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/remote"
	"github.com/quinn/daybook/internal/store"
)

// Backend is the remote surface a sync pass replays mutations against.
// *remote.Client satisfies it; tests substitute a fake.
type Backend interface {
	Upsert(ctx context.Context, table string, row map[string]any) error
	Update(ctx context.Context, table, id string, patch map[string]any) error
	Delete(ctx context.Context, table, id string) error
	Rows(ctx context.Context, table, userID string) ([]map[string]any, error)
	Health(ctx context.Context) (*remote.HealthResponse, error)
}

// Options tune a Manager. The zero value is usable: no dead-lettering,
// default backoff, default per-call timeout.
type Options struct {
	// CallTimeout bounds each individual backend call. Zero means
	// defaultCallTimeout.
	CallTimeout time.Duration

	// BackoffBase and BackoffMax shape the exponential retry delay written
	// to next_retry_at after a failure. Zero means the defaults.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// DeadLetterCeiling flags an entry as dead-lettered once its retry count
	// reaches this value. Zero disables dead-lettering entirely: entries
	// retry forever.
	DeadLetterCeiling int

	// Tables restricts which logical tables the manager will replay. An
	// entry for a table outside this list fails (and stays queued) rather
	// than being silently dropped. Empty means all tables are accepted.
	Tables []string
}

const (
	defaultCallTimeout = 10 * time.Second
	defaultBackoffBase = 2 * time.Second
	defaultBackoffMax  = 5 * time.Minute
)

// Manager coordinates sync passes. At most one pass runs at a time; a
// trigger while a pass is in flight returns immediately with Skipped set.
type Manager struct {
	store   *store.Store
	backend Backend
	opts    Options

	mu         sync.Mutex
	inProgress bool
	failedRuns int
}

// New creates a Manager.
func New(st *store.Store, backend Backend, opts Options) *Manager {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = defaultBackoffMax
	}
	return &Manager{store: st, backend: backend, opts: opts}
}

// EntryError records one queue entry that failed during a pass.
type EntryError struct {
	ActionID string
	Table    string
	RecordID string
	Err      error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.ActionID, e.Table, e.RecordID, e.Err)
}

// PassResult summarises a sync pass.
type PassResult struct {
	Success bool // no entry failed
	Skipped bool // another pass was already running
	Synced  int  // entries confirmed and removed
	Waiting int  // entries gated by next_retry_at or dead_letter
	Errors  []EntryError
}

// Online reports whether the backend is reachable right now. The answer is
// never cached; every call probes the server.
func (m *Manager) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer cancel()
	_, err := m.backend.Health(ctx)
	if err != nil {
		slog.Debug("health check failed", "err", err)
	}
	return err == nil
}

// ProcessQueue runs one sync pass for a user ("" means all users). Entries
// whose next_retry_at lies in the future, and dead-lettered entries, are
// skipped without counting as failures.
func (m *Manager) ProcessQueue(ctx context.Context, userID string) (*PassResult, error) {
	m.mu.Lock()
	if m.inProgress {
		m.mu.Unlock()
		// A pass is already draining the same queue; nothing to do.
		return &PassResult{Success: true, Skipped: true}, nil
	}
	m.inProgress = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inProgress = false
		m.mu.Unlock()
	}()

	actions, err := m.store.PendingActions()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	result := &PassResult{}
	now := time.Now()
	var history []models.SyncHistoryEntry

	for _, action := range actions {
		if userID != "" && action.UserID != userID {
			continue
		}
		if action.DeadLetter {
			result.Waiting++
			continue
		}
		if !action.NextRetryAt.IsZero() && action.NextRetryAt.After(now) {
			result.Waiting++
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := m.store.MarkRecordSyncStatus(action.Table, action.RecordID, models.SyncSyncing); err != nil {
			slog.Debug("mark record syncing", "table", action.Table, "record", action.RecordID, "err", err)
		}

		if err := m.replay(ctx, &action); err != nil {
			slog.Warn("sync entry failed",
				"action", action.Action, "table", action.Table, "record", action.RecordID,
				"retries", action.RetryCount+1, "err", err)
			m.recordFailure(&action, err)
			if serr := m.store.MarkRecordSyncStatus(action.Table, action.RecordID, models.SyncError); serr != nil {
				slog.Debug("mark record errored", "table", action.Table, "record", action.RecordID, "err", serr)
			}
			result.Errors = append(result.Errors, EntryError{
				ActionID: action.ID,
				Table:    action.Table,
				RecordID: action.RecordID,
				Err:      err,
			})
			continue
		}

		if err := m.store.RemoveAction(action.ID); err != nil {
			return result, fmt.Errorf("remove confirmed action %s: %w", action.ID, err)
		}
		if action.Action != models.ActionDelete {
			if err := m.store.MarkRecordSynced(action.Table, action.RecordID); err != nil {
				return result, fmt.Errorf("mark record synced %s/%s: %w", action.Table, action.RecordID, err)
			}
		}
		result.Synced++
		history = append(history, models.SyncHistoryEntry{
			Action:   action.Action,
			Table:    action.Table,
			RecordID: action.RecordID,
			UserID:   action.UserID,
		})
		slog.Debug("sync entry confirmed", "action", action.Action, "table", action.Table, "record", action.RecordID)
	}

	if err := m.store.RecordSyncHistory(history); err != nil {
		slog.Warn("record sync history", "err", err)
	}

	result.Success = len(result.Errors) == 0

	m.mu.Lock()
	if result.Success {
		m.failedRuns = 0
	} else {
		m.failedRuns++
	}
	m.mu.Unlock()

	if result.Success && result.Waiting == 0 {
		if err := m.store.SetSetting(store.SettingLastFullSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("set last full sync", "err", err)
		}
	}

	return result, nil
}

// ForceSyncNow probes connectivity and, if online, runs a pass. The bool
// reports whether a pass ran and fully succeeded. Offline is a quiet no-op:
// false, a nil result, no error, and the queue untouched.
func (m *Manager) ForceSyncNow(ctx context.Context, userID string) (bool, *PassResult, error) {
	if !m.Online(ctx) {
		return false, nil, nil
	}
	result, err := m.ProcessQueue(ctx, userID)
	if err != nil {
		return false, result, err
	}
	return result.Success, result, nil
}

// replay dispatches one queue entry as a backend call with a per-call
// timeout.
func (m *Manager) replay(ctx context.Context, action *models.QueuedAction) error {
	if !m.tableAllowed(action.Table) {
		return fmt.Errorf("unknown table %q", action.Table)
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer cancel()

	switch action.Action {
	case models.ActionCreate:
		row, err := decodeRow(action.Data)
		if err != nil {
			return err
		}
		// Upsert keyed by the client-generated id: a retried create that
		// already landed is a no-op on the server.
		return m.backend.Upsert(ctx, action.Table, row)
	case models.ActionUpdate:
		patch, err := decodeRow(action.Data)
		if err != nil {
			return err
		}
		return m.backend.Update(ctx, action.Table, action.RecordID, patch)
	case models.ActionDelete:
		err := m.backend.Delete(ctx, action.Table, action.RecordID)
		if err != nil && isNotFound(err) {
			// Already gone remotely; the delete is effectively confirmed.
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown action %q", action.Action)
	}
}

// recordFailure bumps the retry count and gates the next attempt. The entry
// always stays queued; at most it is flagged dead-lettered when the opt-in
// ceiling is reached.
func (m *Manager) recordFailure(action *models.QueuedAction, cause error) {
	retries := action.RetryCount + 1
	nextRetryAt := time.Now().Add(calculateBackoff(retries, m.opts.BackoffBase, m.opts.BackoffMax))
	deadLetter := m.opts.DeadLetterCeiling > 0 && retries >= m.opts.DeadLetterCeiling
	if deadLetter {
		slog.Warn("queue entry dead-lettered",
			"action", action.ID, "table", action.Table, "record", action.RecordID, "retries", retries)
	}
	if err := m.store.MarkActionFailed(action.ID, cause, nextRetryAt, deadLetter); err != nil {
		slog.Error("mark action failed", "action", action.ID, "err", err)
	}
}

// RetryDeadLetters revives all dead-lettered entries so the next pass picks
// them up.
func (m *Manager) RetryDeadLetters() (int64, error) {
	return m.store.RetryDeadLetters()
}

// Status is a read-only snapshot of the manager for UI and diagnostics.
type Status struct {
	InProgress        bool // at most one pass runs at a time
	FailedRuns        int  // consecutive passes with at least one entry error
	DeadLetterCeiling int  // 0 means entries retry forever
}

// Status returns a snapshot of the manager state. It never mutates anything.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		InProgress:        m.inProgress,
		FailedRuns:        m.failedRuns,
		DeadLetterCeiling: m.opts.DeadLetterCeiling,
	}
}

func (m *Manager) tableAllowed(table string) bool {
	if len(m.opts.Tables) == 0 {
		return true
	}
	for _, t := range m.opts.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// calculateBackoff returns base * 2^(retries-1) capped at max.
func calculateBackoff(retries int, base, max time.Duration) time.Duration {
	if retries < 1 {
		retries = 1
	}
	backoff := base
	for i := 1; i < retries; i++ {
		backoff *= 2
		if backoff >= max {
			return max
		}
	}
	if backoff > max {
		backoff = max
	}
	return backoff
}

func decodeRow(data json.RawMessage) (map[string]any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("queue entry has no payload")
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return row, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, remote.ErrNotFound)
}
