package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"exambank/internal/logging"
	"exambank/internal/storage"
)

// openTestStore opens and initializes a fresh database in a temp dir.
func openTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "exambank.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *storage.DB, table string) int {
	t.Helper()
	row, err := db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func strptr(s string) *string { return &s }

// seedStemAndKa inserts the K1 stem and a ka under it.
func seedStemAndKa(t *testing.T, db *storage.DB, kaNumber string) {
	t.Helper()
	ctx := context.Background()
	stems := NewStems(db)
	if _, err := stems.Add(ctx, Stem{StemID: "K1", Statement: "Knowledge of the physical connections between (SYSTEM) and other systems"}); err != nil {
		t.Fatalf("seed stem: %v", err)
	}
	if err := NewKas(db).Add(ctx, Ka{KaNumber: kaNumber, StemID: "K1"}); err != nil {
		t.Fatalf("seed ka: %v", err)
	}
}
