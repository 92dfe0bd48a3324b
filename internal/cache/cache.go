// Package cache is the data layer the rest of the application talks to.
// Reads come straight from the local store; writes land locally first (with
// a queue entry in the same transaction) and are then pushed to the backend
// immediately when it is reachable. The backend being down never fails a
// write: the queued entry is simply drained by a later sync pass.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/store"
)

// Remote is the backend surface the cache pushes to and refreshes from.
// *remote.Client satisfies it.
type Remote interface {
	Upsert(ctx context.Context, table string, row map[string]any) error
	Delete(ctx context.Context, table, id string) error
	Rows(ctx context.Context, table, userID string) ([]map[string]any, error)
}

// Notifier receives a signal after every local mutation, so a background
// scheduler can debounce a push. *syncer.Scheduler satisfies it.
type Notifier interface {
	Notify()
}

// Resolver picks a winner between a local and a remote version of a row.
type Resolver func(local, remote map[string]any) map[string]any

// Cache binds the local store to the remote backend.
type Cache struct {
	store    *store.Store
	remote   Remote   // nil means fully offline operation
	notifier Notifier // nil means no background sync
	resolve  Resolver

	// pushTimeout bounds the immediate post-write push attempt.
	pushTimeout time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithRemote attaches a backend for immediate pushes and refreshes.
func WithRemote(r Remote) Option {
	return func(c *Cache) { c.remote = r }
}

// WithNotifier attaches a mutation signal target.
func WithNotifier(n Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// WithResolver overrides the conflict resolver used during Refresh.
func WithResolver(r Resolver) Option {
	return func(c *Cache) { c.resolve = r }
}

// New creates a Cache over an initialized store.
func New(st *store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:       st,
		pushTimeout: 5 * time.Second,
		resolve:     func(local, _ map[string]any) map[string]any { return local },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// save writes a record locally with a queue entry, then tries to push it to
// the backend right away. A failed push leaves the entry queued and is not
// an error.
func (c *Cache) save(ctx context.Context, table string, rec *models.Record) error {
	actionID, err := c.store.SaveRecord(table, rec, true)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", table, rec.ID, err)
	}
	c.pushNow(ctx, table, rec, actionID)
	return nil
}

// delete removes a record locally with a queued delete, then tries the
// remote delete right away.
func (c *Cache) delete(ctx context.Context, table, id, userID string) error {
	actionID, err := c.store.DeleteRecord(table, id, userID, true)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	if c.remote != nil {
		pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
		defer cancel()
		if err := c.remote.Delete(pushCtx, table, id); err != nil {
			slog.Debug("immediate delete push failed, left queued", "table", table, "id", id, "err", err)
			c.signal()
			return nil
		}
		if err := c.store.RemoveAction(actionID); err != nil {
			slog.Warn("remove confirmed action", "action", actionID, "err", err)
		}
	} else {
		c.signal()
	}
	return nil
}

// pushNow attempts the immediate post-write push. On success the queue entry
// is removed and the record marked synced; on failure the entry stays queued
// and the notifier is signalled.
func (c *Cache) pushNow(ctx context.Context, table string, rec *models.Record, actionID string) {
	if c.remote == nil {
		c.signal()
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()

	row := recordRow(rec)
	if err := c.remote.Upsert(pushCtx, table, row); err != nil {
		slog.Debug("immediate push failed, left queued", "table", table, "id", rec.ID, "err", err)
		c.signal()
		return
	}

	if err := c.store.RemoveAction(actionID); err != nil {
		slog.Warn("remove confirmed action", "action", actionID, "err", err)
		return
	}
	if err := c.store.MarkRecordSynced(table, rec.ID); err != nil {
		slog.Warn("mark record synced", "table", table, "id", rec.ID, "err", err)
	}
}

func (c *Cache) signal() {
	if c.notifier != nil {
		c.notifier.Notify()
	}
}

// Refresh pulls a user's rows for the given tables and merges them into the
// local store. Records still waiting to sync keep their local version unless
// the remote copy is strictly newer.
func (c *Cache) Refresh(ctx context.Context, userID string, tables ...string) error {
	if c.remote == nil {
		return fmt.Errorf("refresh: no remote configured")
	}
	for _, table := range tables {
		if err := c.refreshTable(ctx, table, userID); err != nil {
			return fmt.Errorf("refresh %s: %w", table, err)
		}
	}
	return nil
}

func (c *Cache) refreshTable(ctx context.Context, table, userID string) error {
	rows, err := c.remote.Rows(ctx, table, userID)
	if err != nil {
		return err
	}

	for _, row := range rows {
		id, _ := row["id"].(string)
		if id == "" {
			slog.Warn("remote row without id skipped", "table", table)
			continue
		}

		local, err := c.store.GetRecord(table, id)
		if err != nil {
			return err
		}

		if local != nil {
			winner := c.resolve(recordRow(local), row)
			if isSameRow(winner, recordRow(local)) {
				continue
			}
		}

		rec, err := rowRecord(row)
		if err != nil {
			slog.Warn("remote row rejected", "table", table, "id", id, "err", err)
			continue
		}
		// markForSync=false: this state came from the backend
		if _, err := c.store.SaveRecord(table, rec, false); err != nil {
			return err
		}
	}
	return nil
}

// bookkeepingKeys are row fields lifted out of the JSON blob into record
// columns.
var bookkeepingKeys = map[string]bool{
	"id":          true,
	"user_id":     true,
	"record_date": true,
	"completed":   true,
	"created_at":  true,
	"updated_at":  true,
}

// recordRow flattens a record into the wire row shape.
func recordRow(rec *models.Record) map[string]any {
	row := make(map[string]any, len(rec.Data)+6)
	for k, v := range rec.Data {
		row[k] = v
	}
	row["id"] = rec.ID
	row["user_id"] = rec.UserID
	if rec.Date != "" {
		row["record_date"] = rec.Date
	}
	row["completed"] = rec.Completed
	row["created_at"] = rec.CreatedAt.Format(time.RFC3339)
	row["updated_at"] = rec.UpdatedAt.Format(time.RFC3339)
	return row
}

// rowRecord builds a record from a wire row, splitting bookkeeping fields
// from domain data.
func rowRecord(row map[string]any) (*models.Record, error) {
	id, _ := row["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("row missing id")
	}

	rec := &models.Record{ID: id, Data: make(map[string]any)}
	rec.UserID, _ = row["user_id"].(string)
	rec.Date, _ = row["record_date"].(string)
	if v, ok := row["completed"].(bool); ok {
		rec.Completed = v
	}
	if v, ok := row["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			rec.CreatedAt = ts
		}
	}
	if v, ok := row["updated_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			rec.UpdatedAt = ts
		}
	}

	for k, v := range row {
		if !bookkeepingKeys[k] {
			rec.Data[k] = v
		}
	}
	return rec, nil
}

func isSameRow(a, b map[string]any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}
