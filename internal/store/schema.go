package store

// SchemaVersion is the current local store schema version
const SchemaVersion = 2

const schema = `
-- Domain records, keyed by logical table name. Domain fields are stored as
-- JSON in data; user_id, record_date and completed are promoted for indexing.
CREATE TABLE IF NOT EXISTS records (
    tbl TEXT NOT NULL,
    id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}',
    record_date TEXT DEFAULT '',
    completed INTEGER NOT NULL DEFAULT 0,
    offline_id TEXT DEFAULT '',
    needs_sync INTEGER NOT NULL DEFAULT 0,
    sync_status TEXT NOT NULL DEFAULT 'pending',
    last_synced DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tbl, id)
);

CREATE INDEX IF NOT EXISTS idx_records_user ON records(tbl, user_id);
CREATE INDEX IF NOT EXISTS idx_records_date ON records(tbl, record_date);
CREATE INDEX IF NOT EXISTS idx_records_needs_sync ON records(tbl, needs_sync);

-- Mutation queue. rowid preserves insertion order; entries leave only via
-- remove_action after a confirmed remote call (or an explicit clear).
CREATE TABLE IF NOT EXISTS queued_actions (
    id TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    tbl TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    record_id TEXT NOT NULL,
    data TEXT DEFAULT '',
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT DEFAULT '',
    next_retry_at DATETIME,
    dead_letter INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_queued_actions_user ON queued_actions(user_id);

-- Cross-session key/value flags
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Confirmed sync operations, for diagnostics
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    tbl TEXT NOT NULL,
    record_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration represents a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations contains all schema migrations in order.
// Version 1 is the base schema; later versions alter it in place.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "add dead_letter flag to queued_actions",
		SQL:         `ALTER TABLE queued_actions ADD COLUMN dead_letter INTEGER NOT NULL DEFAULT 0;`,
	},
}
