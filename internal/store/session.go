// Package store provides durable session persistence backed by SQLite.
// Records are keyed by a deterministic fingerprint of (task, workspace) so a
// repeated invocation can detect its prior attempt; saves are whole-record
// overwrites with last-writer-wins semantics.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"overseer/internal/logging"
)

// SessionRecord is one persisted task outcome. Records are never mutated in
// place; a re-save fully supersedes the previous record for the same ID.
type SessionRecord struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Mode      string    `json:"mode"`
	Workspace string    `json:"workspace"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Output    string    `json:"output"`
	ToolsUsed []string  `json:"tools_used"`
}

// SessionStore is a SQLite-backed key-value store of session records.
type SessionStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSessionStore opens (creating if needed) the session database at path.
// Use ":memory:" for an ephemeral store.
func NewSessionStore(path string) (*SessionStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sessions table: %w", err)
	}

	logging.Session("Session store opened at %s", path)
	return &SessionStore{db: db}, nil
}

// Fingerprint derives the deterministic session ID for a (task, workspace)
// pair. Identical inputs always map to the identical ID; distinct inputs
// diverge with SHA-256 collision resistance.
func Fingerprint(task, workspace string) string {
	sum := sha256.Sum256([]byte(task + ":" + workspace))
	return hex.EncodeToString(sum[:])[:16]
}

// Save writes a record, overwriting any existing record for the same ID.
func (s *SessionStore) Save(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", rec.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		rec.ID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}

	logging.SessionDebug("Saved session %s (success=%v, output=%d bytes)", rec.ID, rec.Success, len(rec.Output))
	return nil
}

// Load returns the record for id, or ok=false when none exists.
func (s *SessionStore) Load(id string) (SessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var rec SessionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return SessionRecord{}, false, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return rec, true, nil
}

// Close releases the underlying database handle.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
