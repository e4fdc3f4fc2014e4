// Package storage owns the embedded SQLite connection for the exam bank:
// open/close lifecycle, transactional helpers, schema bootstrap, and the
// parameterized predicate builder. All repositories borrow the connection
// through this package per call; nothing else holds the handle.
package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
)

// connState tracks the lifecycle of the single logical connection.
type connState int

const (
	stateUninitialized connState = iota
	stateOpen
	stateClosing
	stateClosed
)

// DB represents the exam bank database connection with transaction helpers.
// Every operation is gated on the lifecycle state: once Close has been
// requested, no statement reaches the underlying pool.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string

	mu    sync.Mutex
	state connState
}

// Open opens or creates the SQLite database at dbPath. The connection is
// returned uninitialized; callers must run Initialize before issuing
// repository operations.
func Open(dbPath string, logger *logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, bankerrors.New(bankerrors.Store, "create database directory", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, bankerrors.New(bankerrors.Store, "open database", err)
	}

	// Single logical connection: statement-level serialization comes from
	// the store itself, multi-statement atomicity from explicit transactions.
	conn.SetMaxOpenConns(1)

	// Foreign-key enforcement must be on before any application statement.
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, bankerrors.New(bankerrors.Store, "set pragma", err)
		}
	}

	return &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
		state:  stateUninitialized,
	}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// guard checks that the connection is usable for repository operations.
func (db *DB) guard() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	switch db.state {
	case stateOpen:
		return nil
	case stateUninitialized:
		return bankerrors.Newf(bankerrors.ConnectionClosed, "store is not initialized")
	default:
		return bankerrors.Newf(bankerrors.ConnectionClosed, "store is closed")
	}
}

// Close transitions the connection to closing synchronously; the underlying
// pool close completes in the background and its failure is logged, not
// propagated. A second Close is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.state == stateClosing || db.state == stateClosed {
		db.mu.Unlock()
		return nil
	}
	db.state = stateClosing
	db.mu.Unlock()

	go func() {
		if err := db.conn.Close(); err != nil {
			db.logger.Error("Failed to close database", map[string]interface{}{
				"path":  db.dbPath,
				"error": err.Error(),
			})
		}
		db.mu.Lock()
		db.state = stateClosed
		db.mu.Unlock()
	}()

	return nil
}

// WithTx executes fn within a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed. Concurrent readers
// never observe intermediate state of a multi-statement operation.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := db.guard(); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return bankerrors.New(bankerrors.Store, "begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return bankerrors.New(bankerrors.Store, "commit transaction", err)
	}

	return nil
}

// Exec executes a statement without returning rows.
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := db.guard(); err != nil {
		return nil, err
	}
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := db.guard(); err != nil {
		return nil, err
	}
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query expected to return at most one row.
func (db *DB) QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	if err := db.guard(); err != nil {
		return nil, err
	}
	return db.conn.QueryRowContext(ctx, query, args...), nil
}

// Classify maps a raw driver error into the bank taxonomy. Constraint
// violations (foreign key, uniqueness, checks) become Constraint; everything
// else becomes Store. Classified errors pass through unchanged.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var be *bankerrors.BankError
	if stderrors.As(err, &be) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return bankerrors.New(bankerrors.Constraint, op, err)
	}
	return bankerrors.New(bankerrors.Store, op, err)
}

// Classifyf is Classify with a formatted operation description.
func Classifyf(err error, format string, args ...interface{}) error {
	return Classify(err, fmt.Sprintf(format, args...))
}
