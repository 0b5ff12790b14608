// Package storage provides persistence for Catchat.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/qcatchat/catchat/internal/logging"
)

// DB wraps the SQLite database connection. The handle is shared process-wide;
// Acquire checks liveness before each unit of work and reopens a dead handle.
type DB struct {
	mu       sync.Mutex
	conn     *sql.DB
	dsn      string
	path     string
	isMemory bool
}

// Config for database initialization
type Config struct {
	Path     string // Path to database file
	InMemory bool   // Use in-memory database (for testing)
}

// Open opens or creates a SQLite database
func Open(cfg Config) (*DB, error) {
	var dsn string
	var isMemory bool

	if cfg.InMemory {
		dsn = ":memory:"
		isMemory = true
	} else {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = cfg.Path
	}

	conn, err := openConn(dsn, isMemory)
	if err != nil {
		return nil, err
	}

	return &DB{
		conn:     conn,
		dsn:      dsn,
		path:     cfg.Path,
		isMemory: isMemory,
	}, nil
}

func openConn(dsn string, isMemory bool) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well
	conn.SetMaxOpenConns(1)
	if isMemory {
		// Closing the only connection would drop the in-memory database
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return conn, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Conn returns the underlying sql.DB for direct access
func (db *DB) Conn() *sql.DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn
}

// Acquire returns a live handle, reopening a file-backed database whose
// connection no longer answers a ping.
func (db *DB) Acquire(ctx context.Context) (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.conn.PingContext(ctx); err == nil {
		return db.conn, nil
	} else if db.isMemory {
		return nil, fmt.Errorf("in-memory database unavailable: %w", err)
	} else {
		logging.Warn("database ping failed, reconnecting: %v", err)
	}

	conn, err := openConn(db.dsn, false)
	if err != nil {
		return nil, err
	}
	db.conn.Close()
	db.conn = conn
	logging.Info("database connection re-established")
	return db.conn, nil
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	_, err := db.Acquire(ctx)
	return err
}

// Transaction executes a function within a transaction
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
