package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It keeps one row per session in a single-file database. Designed for:
//   - Development and single-process deployments
//   - Inspecting checkpoints with ordinary SQL tooling
//
// The connection pool is limited to one connection, so writes are
// serialized by the driver and each Put replaces the row in one statement.
//
// Schema:
//   - session_checkpoints: session_id (PK), status, cursor, step, data, updated_at
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (or creates) a SQLite database at path.
//
// Use ":memory:" for a throwaway database in tests.
//
// Example:
//
//	st, err := store.NewSQLiteStore[workflow.State]("./postgraph.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)    // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)    // Keep connection open (required for :memory:)
	db.SetConnMaxLifetime(0) // No max lifetime for SQLite

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			session_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			cursor TEXT NOT NULL,
			step INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create session_checkpoints table: %w", err)
	}
	return nil
}

func (s *SQLiteStore[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Create implements Store.
func (s *SQLiteStore[S]) Create(ctx context.Context, cp Checkpoint[S]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := encode(cp)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, status, cursor, step, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, cp.SessionID, string(cp.Status), cp.Cursor, cp.Step, string(data), cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore[S]) Get(ctx context.Context, sessionID string) (Checkpoint[S], error) {
	if err := s.checkOpen(); err != nil {
		return Checkpoint[S]{}, err
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM session_checkpoints WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decode[S]([]byte(data))
}

// Put implements Store.
func (s *SQLiteStore[S]) Put(ctx context.Context, cp Checkpoint[S]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := encode(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, status, cursor, step, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			cursor = excluded.cursor,
			step = excluded.step,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, cp.SessionID, string(cp.Status), cp.Cursor, cp.Step, string(data), cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore[S]) Delete(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM session_checkpoints WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore[S]) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM session_checkpoints ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping verifies the database connection.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string {
	return s.path
}

// Close closes the database. Further calls return ErrClosed.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
