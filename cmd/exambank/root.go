package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"exambank/internal/config"
	"exambank/internal/envelope"
	"exambank/internal/logging"
	"exambank/internal/service"
	"exambank/internal/storage"
	"exambank/internal/version"
)

var (
	// bankRootFlag is the CLI --bank-root flag value
	bankRootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "exambank",
	Short: "Exam Bank - licensing exam content catalog",
	Long: `Exam Bank manages a catalog of licensing exam content: plants, exams,
questions with answers, and the knowledge/ability taxonomy linking them,
all stored in a single embedded database file.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("exambank version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&bankRootFlag, "bank-root", "",
		"Bank root directory (default: current directory)")
}

// resolveBankRoot determines the bank root from the CLI flag, the
// EXAMBANK_ROOT env var, or the current directory.
func resolveBankRoot() (string, error) {
	if bankRootFlag != "" {
		return bankRootFlag, nil
	}
	if env := os.Getenv("EXAMBANK_ROOT"); env != "" {
		return env, nil
	}
	return os.Getwd()
}

func mustLoadConfig() *config.Config {
	bankRoot, err := resolveBankRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving bank root: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(bankRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// mustOpenStore opens the store and runs the idempotent schema bootstrap.
func mustOpenStore(cfg *config.Config, logger *logging.Logger) *storage.DB {
	db, err := storage.Open(cfg.DatabasePath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	if err := db.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing store: %v\n", err)
		os.Exit(1)
	}
	return db
}

// mustOpenService wires a service over an opened store and hands back a
// cleanup func for defer.
func mustOpenService() (*service.Service, func()) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenStore(cfg, logger)

	svc := service.New(db, logger)
	svc.SetMaxBatchRows(cfg.Ingest.MaxBatchRows)
	return svc, func() { svc.Close() }
}

// printResponse renders the envelope as indented JSON and exits non-zero on
// failure, so scripts can rely on the exit code alone.
func printResponse(resp envelope.Response) {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
}

func newContext() context.Context {
	return context.Background()
}
