package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"exambank/internal/envelope"
	"exambank/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show exam bank status",
	Long:  "Display the schema version and row counts of the bank's tables",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusTables are the user-facing tables reported by status, in display
// order.
var statusTables = []string{
	"plants", "exams", "questions", "answers",
	"stems", "kas", "system_kas",
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenStore(cfg, logger)
	defer db.Close()
	ctx := newContext()

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading schema version: %v\n", err)
		os.Exit(1)
	}

	counts := map[string]int64{}
	for _, table := range statusTables {
		n, err := countTable(ctx, db, table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting %s: %v\n", table, err)
			os.Exit(1)
		}
		counts[table] = n
	}

	printResponse(envelope.Ok(map[string]interface{}{
		"database":       cfg.DatabasePath(),
		"schema_version": version,
		"counts":         counts,
	}))
}

func countTable(ctx context.Context, db *storage.DB, table string) (int64, error) {
	row, err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
