package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quinn/daybook/internal/models"
)

// Filter narrows a Records query by indexed attributes. Zero-value fields
// are ignored; pointer fields distinguish "unset" from "false".
type Filter struct {
	UserID    string
	Date      string
	NeedsSync *bool
	Completed *bool
}

const recordColumns = `tbl, id, user_id, data, record_date, completed, offline_id, needs_sync, sync_status, last_synced, created_at, updated_at`

// Records returns all records in a logical table matching the filter, in
// insertion order. An empty result is a nil slice, never an error.
func (s *Store) Records(table string, f Filter) ([]models.Record, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE tbl = ?`
	args := []any{table}

	if f.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if f.Date != "" {
		query += " AND record_date = ?"
		args = append(args, f.Date)
	}
	if f.NeedsSync != nil {
		query += " AND needs_sync = ?"
		args = append(args, boolToInt(*f.NeedsSync))
	}
	if f.Completed != nil {
		query += " AND completed = ?"
		args = append(args, boolToInt(*f.Completed))
	}
	query += " ORDER BY rowid ASC"

	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetRecord returns a single record, or nil if it does not exist.
func (s *Store) GetRecord(table, id string) (*models.Record, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}

	row := conn.QueryRow(`SELECT `+recordColumns+` FROM records WHERE tbl = ? AND id = ?`, table, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveRecord upserts a record by id, setting sync metadata as part of the
// same write. When markForSync is true a mutation queue entry is created in
// the same transaction, so a record flagged needs_sync always has a matching
// queue entry. Returns the queued action ID ("" when markForSync is false).
func (s *Store) SaveRecord(table string, rec *models.Record, markForSync bool) (string, error) {
	conn, err := s.db()
	if err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", fmt.Errorf("save record: empty id")
	}

	var actionID string
	err = s.withWriteLock(func() error {
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		var exists bool
		var createdAt time.Time
		err = tx.QueryRow(`SELECT created_at FROM records WHERE tbl = ? AND id = ?`, table, rec.ID).Scan(&createdAt)
		switch {
		case err == sql.ErrNoRows:
			exists = false
		case err != nil:
			return fmt.Errorf("check existing: %w", err)
		default:
			exists = true
		}

		now := time.Now().UTC()
		if exists {
			rec.CreatedAt = createdAt
		} else if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		// Local mutations stamp updated_at; state applied from the backend
		// keeps the timestamp it arrived with.
		if markForSync || rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = now
		}

		if markForSync {
			rec.NeedsSync = true
			rec.SyncStatus = models.SyncPending
			if !exists && rec.OfflineID == "" {
				rec.OfflineID = rec.ID
			}
		} else {
			rec.NeedsSync = false
			rec.SyncStatus = models.SyncSynced
		}

		dataJSON, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("marshal record data: %w", err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO records
				(tbl, id, user_id, data, record_date, completed, offline_id, needs_sync, sync_status, last_synced, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, table, rec.ID, rec.UserID, string(dataJSON), rec.Date, boolToInt(rec.Completed),
			rec.OfflineID, boolToInt(rec.NeedsSync), string(rec.SyncStatus), rec.LastSynced, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert record %s/%s: %w", table, rec.ID, err)
		}

		if markForSync {
			action := models.ActionUpdate
			if !exists {
				action = models.ActionCreate
			}
			payload, err := json.Marshal(rowPayload(rec))
			if err != nil {
				return fmt.Errorf("marshal queue payload: %w", err)
			}
			actionID, err = enqueueTx(tx, action, table, rec.UserID, rec.ID, payload)
			if err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return actionID, nil
}

// DeleteRecord removes a record locally. When markForSync is true a delete
// entry is queued in the same transaction; the record id alone routes the
// remote delete, so the entry carries no payload. Deleting a missing record
// with markForSync still queues the delete (the remote copy may exist).
func (s *Store) DeleteRecord(table, id, userID string, markForSync bool) (string, error) {
	conn, err := s.db()
	if err != nil {
		return "", err
	}

	var actionID string
	err = s.withWriteLock(func() error {
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM records WHERE tbl = ? AND id = ?`, table, id); err != nil {
			return fmt.Errorf("delete record %s/%s: %w", table, id, err)
		}

		if markForSync {
			actionID, err = enqueueTx(tx, models.ActionDelete, table, userID, id, nil)
			if err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return actionID, nil
}

// MarkRecordSynced clears needs_sync and stamps the record as synced.
// No-op (not an error) when the record does not exist.
func (s *Store) MarkRecordSynced(table, id string) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		_, err := conn.Exec(`
			UPDATE records SET needs_sync = 0, sync_status = ?, last_synced = ?
			WHERE tbl = ? AND id = ?
		`, string(models.SyncSynced), time.Now().UTC(), table, id)
		return err
	})
}

// MarkRecordSyncStatus sets only the sync_status field (e.g. syncing, error).
// No-op when the record does not exist.
func (s *Store) MarkRecordSyncStatus(table, id string, status models.SyncStatus) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		_, err := conn.Exec(`UPDATE records SET sync_status = ? WHERE tbl = ? AND id = ?`,
			string(status), table, id)
		return err
	})
}

// rowPayload flattens a record into the wire row shape: domain fields plus
// identity and bookkeeping columns.
func rowPayload(rec *models.Record) map[string]any {
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

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var (
		rec        models.Record
		tbl        string
		dataJSON   string
		completed  int
		needsSync  int
		syncStatus string
		lastSynced sql.NullTime
	)
	err := sc.Scan(&tbl, &rec.ID, &rec.UserID, &dataJSON, &rec.Date, &completed,
		&rec.OfflineID, &needsSync, &syncStatus, &lastSynced, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal record data %s: %w", rec.ID, err)
		}
	}
	rec.Completed = completed != 0
	rec.NeedsSync = needsSync != 0
	rec.SyncStatus = models.SyncStatus(syncStatus)
	if lastSynced.Valid {
		rec.LastSynced = &lastSynced.Time
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
