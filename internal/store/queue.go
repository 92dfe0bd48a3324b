package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quinn/daybook/internal/models"
)

// enqueueTx appends a queue entry inside an existing transaction.
func enqueueTx(tx *sql.Tx, action models.ActionType, table, userID, recordID string, data json.RawMessage) (string, error) {
	id, err := generateActionID()
	if err != nil {
		return "", fmt.Errorf("generate action id: %w", err)
	}

	payload := ""
	if len(data) > 0 {
		payload = string(data)
	}

	_, err = tx.Exec(`
		INSERT INTO queued_actions (id, action, tbl, user_id, record_id, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, string(action), table, userID, recordID, payload, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("enqueue %s %s/%s: %w", action, table, recordID, err)
	}
	return id, nil
}

// QueueAction appends a mutation to the queue directly. Most callers should
// prefer SaveRecord/DeleteRecord, which enqueue atomically with the record
// write; this exists for mutations with no local record (and for tests).
// Errors propagate; an enqueue never fails silently.
func (s *Store) QueueAction(action models.ActionType, table, userID, recordID string, data json.RawMessage) (string, error) {
	conn, err := s.db()
	if err != nil {
		return "", err
	}

	var id string
	err = s.withWriteLock(func() error {
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		id, err = enqueueTx(tx, action, table, userID, recordID, data)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

const actionColumns = `id, action, tbl, user_id, record_id, data, timestamp, retry_count, last_error, next_retry_at, dead_letter`

// PendingActions returns the full mutation queue in insertion order.
// Insertion order is retry order; there is no priority or reordering.
func (s *Store) PendingActions() ([]models.QueuedAction, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(`SELECT ` + actionColumns + ` FROM queued_actions ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query queued actions: %w", err)
	}
	defer rows.Close()

	var actions []models.QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// GetAction returns a single queue entry, or nil when absent.
func (s *Store) GetAction(id string) (*models.QueuedAction, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	row := conn.QueryRow(`SELECT `+actionColumns+` FROM queued_actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RemoveAction deletes a queue entry. This is the only way entries leave the
// queue besides Clear, called after the remote backend confirms the mutation.
func (s *Store) RemoveAction(id string) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		_, err := conn.Exec(`DELETE FROM queued_actions WHERE id = ?`, id)
		return err
	})
}

// MarkActionFailed records a failed sync attempt: retry_count is incremented,
// the error captured, and the next retry gated by nextRetryAt. The entry
// stays queued; when deadLetter is true it is additionally flagged so future
// passes skip it until RetryDeadLetters revives it.
func (s *Store) MarkActionFailed(id string, cause error, nextRetryAt time.Time, deadLetter bool) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.withWriteLock(func() error {
		_, err := conn.Exec(`
			UPDATE queued_actions
			SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?, dead_letter = ?
			WHERE id = ?
		`, msg, nextRetryAt.UTC(), boolToInt(deadLetter), id)
		return err
	})
}

// RetryDeadLetters clears the dead-letter flag and retry gating on all
// flagged entries so the next pass picks them up again. Returns the number
// of entries revived. Entries are never dropped automatically.
func (s *Store) RetryDeadLetters() (int64, error) {
	conn, err := s.db()
	if err != nil {
		return 0, err
	}
	var affected int64
	err = s.withWriteLock(func() error {
		res, err := conn.Exec(`
			UPDATE queued_actions
			SET dead_letter = 0, retry_count = 0, next_retry_at = NULL, last_error = ''
			WHERE dead_letter = 1
		`)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

// CountPendingActions returns the number of queued mutations.
func (s *Store) CountPendingActions() (int64, error) {
	conn, err := s.db()
	if err != nil {
		return 0, err
	}
	var count int64
	err = conn.QueryRow(`SELECT COUNT(*) FROM queued_actions`).Scan(&count)
	return count, err
}

func scanAction(sc scanner) (*models.QueuedAction, error) {
	var (
		a           models.QueuedAction
		action      string
		data        sql.NullString
		lastError   sql.NullString
		nextRetryAt sql.NullTime
		deadLetter  int
	)
	err := sc.Scan(&a.ID, &action, &a.Table, &a.UserID, &a.RecordID, &data, &a.Timestamp,
		&a.RetryCount, &lastError, &nextRetryAt, &deadLetter)
	if err != nil {
		return nil, err
	}

	a.Action = models.ActionType(action)
	if data.Valid && data.String != "" {
		a.Data = json.RawMessage(data.String)
	}
	if lastError.Valid {
		a.LastError = lastError.String
	}
	if nextRetryAt.Valid {
		a.NextRetryAt = nextRetryAt.Time
	}
	a.DeadLetter = deadLetter != 0
	return &a, nil
}
