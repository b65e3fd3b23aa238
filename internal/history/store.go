// Package history persists a record of finished agent executions.
//
// The store is bookkeeping only: it never influences execution and failures
// to record are logged, not propagated. SQLite in WAL mode keeps concurrent
// Execute calls from serializing on the database.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown execution ids.
var ErrNotFound = errors.New("history: execution not found")

// Entry is one finished execution.
type Entry struct {
	ID         string
	Provider   string
	SessionID  string
	WorkingDir string
	ExitCode   int
	Success    bool
	ErrorKind  string
	Duration   time.Duration
	StartedAt  time.Time
}

// Store handles execution history persistence.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "executions.db")
	// Busy timeout and WAL mode for concurrent Execute calls.
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		session_id TEXT,
		working_dir TEXT,
		exit_code INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error_kind TEXT,
		duration_ms INTEGER NOT NULL,
		started_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_provider ON executions(provider);
	CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session_id);
	CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a finished execution. A missing ID is generated.
func (s *Store) Record(e *Entry) error {
	if e.ID == "" {
		e.ID = "exec_" + uuid.New().String()[:8]
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO executions (id, provider, session_id, working_dir, exit_code, success, error_kind, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Provider, e.SessionID, e.WorkingDir,
		e.ExitCode, e.Success, e.ErrorKind, e.Duration.Milliseconds(), e.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Get retrieves one execution by id.
func (s *Store) Get(id string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, provider, session_id, working_dir, exit_code, success, error_kind, duration_ms, started_at
		FROM executions WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns the most recent executions, newest first.
func (s *Store) List(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, provider, session_id, working_dir, exit_code, success, error_kind, duration_ms, started_at
		FROM executions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var durationMS int64
	var sessionID, workingDir, errorKind sql.NullString
	err := row.Scan(&e.ID, &e.Provider, &sessionID, &workingDir,
		&e.ExitCode, &e.Success, &errorKind, &durationMS, &e.StartedAt)
	if err != nil {
		return nil, err
	}
	e.SessionID = sessionID.String
	e.WorkingDir = workingDir.String
	e.ErrorKind = errorKind.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return &e, nil
}
