// Package snapshot protects an in-progress session against data loss from
// an unexpected shutdown. Snapshots are written to durable local storage,
// keyed by session id, and deleted on exit or successful finalize.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/claude/liftlog/internal/models"
)

// Store persists session snapshots. Save overwrites any prior snapshot for
// the same session id: last write wins.
type Store interface {
	Save(snap models.Snapshot) error
	Load(sessionID string) (*models.Snapshot, error)
	Delete(sessionID string) error
	Close() error
}

// SQLiteStore keeps snapshots in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at dir/snapshots.db.
func Open(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		saved_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save writes the snapshot, replacing any previous one for the session.
func (s *SQLiteStore) Save(snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (session_id, payload, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		snap.Session.ID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for a session id. Returns nil when none exists.
func (s *SQLiteStore) Load(sessionID string) (*models.Snapshot, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM snapshots WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot for a session id, if any.
func (s *SQLiteStore) Delete(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE session_id = ?`, sessionID)
	return err
}

// Close closes the snapshot database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
