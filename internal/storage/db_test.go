package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "exambank.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	// Exactly one version row after repeated bootstrap.
	row, err := db.QueryRow(ctx, "SELECT COUNT(*) FROM schema_version")
	if err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 1 {
		t.Errorf("schema_version rows = %d, want 1", count)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("version = %d, want %d", version, currentSchemaVersion)
	}

	// No duplicate tables either: sqlite_master holds one entry per table.
	row, err = db.QueryRow(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='plants'
	`)
	if err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 1 {
		t.Errorf("plants table count = %d, want 1", count)
	}
}

func TestOperationsBeforeInitializeAreRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Exec(ctx, "SELECT 1")
	if !bankerrors.HasCode(err, bankerrors.ConnectionClosed) {
		t.Errorf("pre-init Exec error = %v, want CONNECTION_CLOSED", err)
	}
}

func TestCloseGatesEverything(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := db.Exec(ctx, "SELECT 1"); !bankerrors.HasCode(err, bankerrors.ConnectionClosed) {
		t.Errorf("post-close Exec error = %v, want CONNECTION_CLOSED", err)
	}
	if _, err := db.Query(ctx, "SELECT 1"); !bankerrors.HasCode(err, bankerrors.ConnectionClosed) {
		t.Errorf("post-close Query error = %v, want CONNECTION_CLOSED", err)
	}
	if err := db.WithTx(ctx, nil); !bankerrors.HasCode(err, bankerrors.ConnectionClosed) {
		t.Errorf("post-close WithTx error = %v, want CONNECTION_CLOSED", err)
	}

	// Second close is a no-op, not an error.
	if err := db.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	wantErr := bankerrors.Newf(bankerrors.Validation, "forced failure")
	txErr := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plants (plant_name) VALUES (?)`, "Perry"); err != nil {
			return err
		}
		return wantErr
	})
	if txErr != wantErr {
		t.Fatalf("WithTx error = %v, want forced failure", txErr)
	}

	row, err := db.QueryRow(ctx, "SELECT COUNT(*) FROM plants")
	if err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 0 {
		t.Errorf("plants rows after rollback = %d, want 0", count)
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// FK violation: exam referencing a missing plant.
	_, err := db.Exec(ctx, `INSERT INTO exams (exam_name, plant_id) VALUES (?, ?)`, "RO Exam", 99)
	classified := Classify(err, "insert exam")
	if !bankerrors.HasCode(classified, bankerrors.Constraint) {
		t.Errorf("FK violation classified as %v, want CONSTRAINT", classified)
	}
}

func TestCloseCompletesInBackground(t *testing.T) {
	db := openTestDB(t)
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The state settles to closed shortly after the close request.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		db.mu.Lock()
		st := db.state
		db.mu.Unlock()
		if st == stateClosed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("connection never reached closed state")
}
