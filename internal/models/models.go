// Package models defines the domain records and sync metadata shared by the
// local store, the sync manager, and the cache layer.
package models

import (
	"encoding/json"
	"time"
)

// Logical table names for domain records. The store keys everything by these;
// the sync manager dispatches remote calls by them.
const (
	TableTasks           = "tasks"
	TableWorkoutSessions = "workout_sessions"
	TableRoutines        = "routines"
)

// SyncStatus tracks where a local record sits in the sync lifecycle.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// ActionType is the kind of mutation a queue entry carries.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Record is a domain row as held by the local store. Domain fields live in
// Data (schema varies per table); UserID, Date and Completed are promoted so
// the store can index them for range queries.
type Record struct {
	ID        string
	UserID    string
	Data      map[string]any
	Date      string // day bucket, "2006-01-02"; empty when not date-scoped
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// Sync metadata. OfflineID is set for records created before their first
	// successful sync. A record with NeedsSync=true always has a matching
	// queue entry; SaveRecord writes both in one transaction.
	OfflineID  string
	NeedsSync  bool
	SyncStatus SyncStatus
	LastSynced *time.Time
}

// QueuedAction is one pending mutation awaiting confirmation from the remote
// backend. Entries drain in insertion order and are removed only after the
// remote call succeeds (or via an explicit clear).
type QueuedAction struct {
	ID          string
	Action      ActionType
	Table       string
	UserID      string
	RecordID    string
	Data        json.RawMessage // domain payload; empty for delete
	Timestamp   time.Time
	RetryCount  int
	LastError   string
	NextRetryAt time.Time // backoff gate; zero means eligible immediately
	DeadLetter  bool      // set only when a dead-letter ceiling is configured
}

// Setting is a cross-session key/value flag (e.g. last full sync time).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SyncHistoryEntry records one confirmed sync operation for diagnostics.
type SyncHistoryEntry struct {
	ID        int64
	Action    ActionType
	Table     string
	RecordID  string
	UserID    string
	Timestamp time.Time
}

// Stats summarizes store contents for the status surface.
type Stats struct {
	Records        map[string]int
	PendingActions int
	DeadLetters    int
	LastFullSync   *time.Time
}

// Task is the in-memory shape of a task record.
type Task struct {
	ID        string
	UserID    string
	Title     string
	Notes     string
	Priority  string
	DueDate   string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkoutSession is the in-memory shape of a logged workout.
type WorkoutSession struct {
	ID          string
	UserID      string
	Activity    string
	DurationMin int
	Intensity   string
	Date        string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Routine is a recurring daily/weekly checklist item.
type Routine struct {
	ID        string
	UserID    string
	Name      string
	Cadence   string // "daily" or "weekly"
	Completed bool
	Date      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
