package adapters

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anchorpoint-labs/apibridge"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions across process restarts, keyed by a scope
// string so multiple client instances (or multiple principals) can share
// one database file without observing each other's credentials.
type SQLiteStore struct {
	db    *sql.DB
	scope string
}

var _ apibridge.SessionStore = (*SQLiteStore)(nil)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	scope         TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	issued_at     INTEGER NOT NULL DEFAULT 0,
	expires_in_ms INTEGER NOT NULL DEFAULT 0
)`

// NewSQLiteStore opens (creating if needed) the session database at path.
func NewSQLiteStore(path, scope string) (*SQLiteStore, error) {
	if scope == "" {
		return nil, fmt.Errorf("adapters: session scope is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("adapters: open session database: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("adapters: create sessions table: %w", err)
	}
	return &SQLiteStore{db: db, scope: scope}, nil
}

// Load returns the stored session for this scope, or (nil, nil) when none
// exists.
func (s *SQLiteStore) Load() (*apibridge.Session, error) {
	row := s.db.QueryRow(
		`SELECT access_token, refresh_token, issued_at, expires_in_ms FROM sessions WHERE scope = ?`,
		s.scope,
	)

	var sess apibridge.Session
	var issuedAt, expiresInMs int64
	err := row.Scan(&sess.AccessToken, &sess.RefreshToken, &issuedAt, &expiresInMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("adapters: load session: %w", err)
	}
	if issuedAt > 0 {
		sess.IssuedAt = time.UnixMilli(issuedAt)
	}
	sess.ExpiresIn = time.Duration(expiresInMs) * time.Millisecond
	return &sess, nil
}

// Save replaces the stored session for this scope. Saving nil clears it.
func (s *SQLiteStore) Save(sess *apibridge.Session) error {
	if sess == nil {
		return s.Clear()
	}
	var issuedAt int64
	if !sess.IssuedAt.IsZero() {
		issuedAt = sess.IssuedAt.UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (scope, access_token, refresh_token, issued_at, expires_in_ms)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			issued_at = excluded.issued_at,
			expires_in_ms = excluded.expires_in_ms`,
		s.scope, sess.AccessToken, sess.RefreshToken, issuedAt, sess.ExpiresIn.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("adapters: save session: %w", err)
	}
	return nil
}

// Clear removes the stored session for this scope.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("adapters: clear session: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
