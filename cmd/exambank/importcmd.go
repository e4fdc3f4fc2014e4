package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"exambank/internal/bundle"
	"exambank/internal/catalog"
	"exambank/internal/envelope"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import content into the bank",
}

var importRowsCmd = &cobra.Command{
	Use:   "rows <kind> <file.json>",
	Short: "Batch-import rows from a JSON file",
	Long: `Reads a JSON array of row objects and ingests them with duplicate
tolerance: rows colliding with existing keys are reported as ignored, not
errors. Kind is one of questions, stems, kas, system-kas.`,
	Args: cobra.ExactArgs(2),
	RunE: runImportRows,
}

var importBundleCmd = &cobra.Command{
	Use:   "bundle <dir>",
	Short: "Import an exported exam bundle directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportBundle,
}

func init() {
	importCmd.AddCommand(importRowsCmd, importBundleCmd)
	rootCmd.AddCommand(importCmd)
}

func runImportRows(cmd *cobra.Command, args []string) error {
	kind, file := args[0], args[1]

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var rows []catalog.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	svc, cleanup := mustOpenService()
	defer cleanup()
	ctx := newContext()

	switch kind {
	case "questions":
		printResponse(svc.IngestQuestions(ctx, rows))
	case "stems":
		printResponse(svc.IngestStems(ctx, rows))
	case "kas":
		printResponse(svc.IngestKas(ctx, rows))
	case "system-kas":
		printResponse(svc.IngestSystemKas(ctx, rows))
	default:
		return fmt.Errorf("unknown kind %q: want questions, stems, kas, or system-kas", kind)
	}
	return nil
}

func runImportBundle(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenStore(cfg, logger)
	defer db.Close()

	report, err := bundle.NewImporter(db, logger).Import(newContext(), args[0])
	if err != nil {
		printResponse(envelope.Fail(err))
		return nil
	}
	printResponse(envelope.Ok(report))
	return nil
}
