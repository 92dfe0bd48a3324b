// Package store implements the durable local store: domain records keyed by
// logical table name, the mutation queue, settings, and sync history, all
// backed by a single SQLite database in WAL mode.
//
// A Store is constructed explicitly with New and opened with Init; there is
// no package-level instance. All other components persist exclusively through
// these operations.
package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const dbFile = "daybook.db"

// Store wraps the local database connection.
type Store struct {
	baseDir string

	mu   sync.Mutex
	conn *sql.DB // nil until Init succeeds
}

// New creates a Store rooted at baseDir. The database is not opened until
// Init is called.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init opens (creating if necessary) the database, applies pragmas, and runs
// pending migrations. It is idempotent and safe to call concurrently: the
// first caller opens the store, later callers return immediately.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	dbPath := filepath.Join(s.baseDir, dbFile)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout as fallback protection (matches write lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	s.conn = conn
	if _, err := s.runMigrations(); err != nil {
		s.conn = nil
		conn.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close closes the database. A closed store can be re-opened with Init.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// BaseDir returns the base directory for the store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// db returns the open connection or an error if Init has not run.
func (s *Store) db() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("store not initialized: call Init first")
	}
	return s.conn, nil
}

// withWriteLock executes fn while holding an exclusive cross-process write
// lock. In-process serialization is handled by SQLite itself.
func (s *Store) withWriteLock(fn func() error) error {
	locker := newWriteLocker(s.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// Clear wipes all tables. For tests and explicit resets only.
func (s *Store) Clear() error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	return s.withWriteLock(func() error {
		for _, table := range []string{"records", "queued_actions", "settings", "sync_history"} {
			if _, err := conn.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// getSchemaVersion returns the current schema version from the database
func (s *Store) getSchemaVersion() (int, error) {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// runMigrations applies any pending migrations. Called with s.mu held.
func (s *Store) runMigrations() (int, error) {
	currentVersion, err := s.getSchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	migrationsRun := 0
	for _, migration := range Migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if migration.Version == 2 {
			// Fresh databases already have the column from the base schema
			exists, err := s.columnExists("queued_actions", "dead_letter")
			if err != nil {
				return migrationsRun, fmt.Errorf("check column dead_letter: %w", err)
			}
			if exists {
				if err := s.setSchemaVersion(migration.Version); err != nil {
					return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
				}
				migrationsRun++
				continue
			}
		}
		if _, err := s.conn.Exec(migration.SQL); err != nil {
			return migrationsRun, fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
		}
		if err := s.setSchemaVersion(migration.Version); err != nil {
			return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
		}
		migrationsRun++
	}

	if currentVersion == 0 {
		if err := s.setSchemaVersion(SchemaVersion); err != nil {
			return migrationsRun, err
		}
	}

	return migrationsRun, nil
}

// columnExists checks whether a column exists on a table
func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.conn.Query(fmt.Sprintf("PRAGMA table_info(%s);", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// generateActionID builds a queue entry ID from the enqueue time plus a
// random suffix so near-simultaneous enqueues cannot collide.
func generateActionID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), hex.EncodeToString(b)), nil
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(v string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", v)
}
