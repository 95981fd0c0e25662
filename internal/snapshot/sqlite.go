// Package snapshot provides durable local stores for session snapshots,
// so an interrupted session can be resumed on the same machine.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/examind/proctor/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
  test_id TEXT PRIMARY KEY,
  state_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`

// SQLiteStore persists one snapshot per test ID in a local SQLite file.
// All errors are returned to the caller; the session layer treats them
// as non-fatal.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the snapshot database at path
// and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot for a test ID.
func (s *SQLiteStore) Save(testID string, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (test_id, state_json, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (test_id) DO UPDATE
		 SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		testID, string(raw), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for a test ID, or (nil, nil) when none is
// stored. A snapshot that fails to decode is treated as absent.
func (s *SQLiteStore) Load(testID string) (*session.Snapshot, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT state_json FROM snapshots WHERE test_id = ?`, testID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

// Clear removes the snapshot for a test ID. Clearing an absent entry is
// not an error.
func (s *SQLiteStore) Clear(testID string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
