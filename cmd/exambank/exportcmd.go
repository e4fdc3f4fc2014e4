package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"exambank/internal/bundle"
	"exambank/internal/envelope"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export <exam-id>",
	Short: "Export an exam as a compressed bundle",
	Long: `Writes the exam with full question details, plus the taxonomy rows
its links reference, as a gzip-compressed bundle with a TOML manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Bundle payload format: json or yaml (default from config)")
	exportCmd.Flags().StringVar(&exportDir, "out", "", "Output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	examID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}

	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenStore(cfg, logger)
	defer db.Close()

	format := exportFormat
	if format == "" {
		format = cfg.Export.Format
	}
	outDir := exportDir
	if outDir == "" {
		outDir = cfg.Export.Dir
	}

	path, err := bundle.NewExporter(db, logger).Export(newContext(), examID, format, outDir)
	if err != nil {
		printResponse(envelope.Fail(err))
		return nil
	}
	printResponse(envelope.Ok(map[string]interface{}{"bundle": path}))
	return nil
}
