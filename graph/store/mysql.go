package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// One row per session in the session_checkpoints table, with the encoded
// checkpoint in a JSON column. Suitable when several processes share the
// session table; note that per-session locking is still per process.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore connects to MySQL using a go-sql-driver DSN, e.g.
//
//	user:password@tcp(localhost:3306)/postgraph?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment
// (POSTGRAPH_DSN) or the config file.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore[S]{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			session_id VARCHAR(255) NOT NULL PRIMARY KEY,
			status VARCHAR(32) NOT NULL,
			cursor_node VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			data JSON NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL,
			INDEX idx_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create session_checkpoints table: %w", err)
	}
	return nil
}

func (m *MySQLStore[S]) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Create implements Store.
func (m *MySQLStore[S]) Create(ctx context.Context, cp Checkpoint[S]) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	data, err := encode(cp)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, status, cursor_node, step, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cp.SessionID, string(cp.Status), cp.Cursor, cp.Step, data, cp.UpdatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrExists
		}
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return nil
}

// Get implements Store.
func (m *MySQLStore[S]) Get(ctx context.Context, sessionID string) (Checkpoint[S], error) {
	if err := m.checkOpen(); err != nil {
		return Checkpoint[S]{}, err
	}

	var data []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT data FROM session_checkpoints WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decode[S](data)
}

// Put implements Store.
func (m *MySQLStore[S]) Put(ctx context.Context, cp Checkpoint[S]) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	data, err := encode(cp)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, status, cursor_node, step, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			cursor_node = VALUES(cursor_node),
			step = VALUES(step),
			data = VALUES(data),
			updated_at = VALUES(updated_at)
	`, cp.SessionID, string(cp.Status), cp.Cursor, cp.Step, data, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Delete implements Store.
func (m *MySQLStore[S]) Delete(ctx context.Context, sessionID string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	res, err := m.db.ExecContext(ctx, `DELETE FROM session_checkpoints WHERE session_id = ?`, sessionID)
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
func (m *MySQLStore[S]) List(ctx context.Context) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, `SELECT session_id FROM session_checkpoints ORDER BY session_id`)
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
func (m *MySQLStore[S]) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Close closes the connection pool. Further calls return ErrClosed.
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
