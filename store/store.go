// Package store persists session documents and user preferences in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	session    TEXT PRIMARY KEY,
	html       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS prefs (
	session TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (session, key)
);`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Pragmas and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Document is the last saved source text of a session.
type Document struct {
	Session   string
	HTML      string
	UpdatedAt time.Time
}

// LoadDocument returns ErrNotFound when the session has never been saved.
func (s *Store) LoadDocument(ctx context.Context, session string) (Document, error) {
	d := Document{Session: session}
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`SELECT html, updated_at FROM documents WHERE session = ?`, session).Scan(&d.HTML, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %q: %w", session, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load document %q: %w", session, err)
	}
	d.UpdatedAt = time.UnixMilli(ts)
	return d, nil
}

func (s *Store) SaveDocument(ctx context.Context, session, html string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (session, html, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session) DO UPDATE SET html = excluded.html, updated_at = excluded.updated_at`,
		session, html, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save document %q: %w", session, err)
	}
	return nil
}

// Pref returns ErrNotFound for an unset key.
func (s *Store) Pref(ctx context.Context, session, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM prefs WHERE session = ? AND key = ?`, session, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("pref %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load pref %q: %w", key, err)
	}
	return v, nil
}

// SetPref stores value under key. An empty value deletes the key.
func (s *Store) SetPref(ctx context.Context, session, key, value string) error {
	var err error
	if value == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM prefs WHERE session = ? AND key = ?`, session, key)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO prefs (session, key, value) VALUES (?, ?, ?)
			ON CONFLICT(session, key) DO UPDATE SET value = excluded.value`,
			session, key, value)
	}
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}
