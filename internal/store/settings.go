package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quinn/daybook/internal/models"
)

// Setting keys used by the sync layer.
const (
	SettingLastFullSync = "last_full_sync"
	SettingDeviceID     = "device_id"
)

// Setting returns the value for a key, or "" when unset.
func (s *Store) Setting(key string) (string, error) {
	conn, err := s.db()
	if err != nil {
		return "", err
	}
	var value string
	err = conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting stores a key/value pair, stamping updated_at.
func (s *Store) SetSetting(key, value string) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		_, err := conn.Exec(`
			INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		`, key, value, time.Now().UTC())
		return err
	})
}

// Stats returns per-table record counts, pending-action counts, and the last
// full sync time, for the status/diagnostics surface.
func (s *Store) Stats() (*models.Stats, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{Records: make(map[string]int)}

	rows, err := conn.Query(`SELECT tbl, COUNT(*) FROM records GROUP BY tbl`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tbl string
		var count int
		if err := rows.Scan(&tbl, &count); err != nil {
			return nil, err
		}
		stats.Records[tbl] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := conn.QueryRow(`SELECT COUNT(*) FROM queued_actions`).Scan(&stats.PendingActions); err != nil {
		return nil, err
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM queued_actions WHERE dead_letter = 1`).Scan(&stats.DeadLetters); err != nil {
		return nil, err
	}

	if v, err := s.Setting(SettingLastFullSync); err == nil && v != "" {
		if ts, err := parseTimestamp(v); err == nil {
			stats.LastFullSync = &ts
		}
	}

	return stats, nil
}

// RecordSyncHistory appends confirmed sync operations to the history log.
// History is diagnostic only; failures here should not fail a sync pass.
func (s *Store) RecordSyncHistory(entries []models.SyncHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		tx, err := conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO sync_history (action, tbl, record_id, user_id, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare history insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			ts := e.Timestamp
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			if _, err := stmt.Exec(string(e.Action), e.Table, e.RecordID, e.UserID, ts); err != nil {
				return fmt.Errorf("insert history %s/%s: %w", e.Table, e.RecordID, err)
			}
		}
		return tx.Commit()
	})
}

// RecentSyncHistory returns the most recent confirmed sync operations,
// newest first.
func (s *Store) RecentSyncHistory(limit int) ([]models.SyncHistoryEntry, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT id, action, tbl, record_id, user_id, timestamp
		FROM sync_history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SyncHistoryEntry
	for rows.Next() {
		var e models.SyncHistoryEntry
		var action string
		if err := rows.Scan(&e.ID, &action, &e.Table, &e.RecordID, &e.UserID, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Action = models.ActionType(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
