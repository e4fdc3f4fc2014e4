package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"exambank/internal/config"
	"exambank/internal/storage"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an exam bank",
	Long:  "Creates a .exambank/ directory with default configuration and bootstraps the database schema",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Rewrite the configuration even if one exists")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	bankRoot, err := resolveBankRoot()
	if err != nil {
		return err
	}

	configPath := filepath.Join(bankRoot, ".exambank", "config.toml")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Idempotent behavior: already initialized is success.
		fmt.Println("Exam bank already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'exambank init --force' to rewrite the configuration.")
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.BankRoot = bankRoot
	if err := cfg.Save(bankRoot); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger := newLogger(cfg)
	db, err := storage.Open(cfg.DatabasePath(), logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Initialize(context.Background()); err != nil {
		return err
	}

	fmt.Println("Exam bank initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Printf("Database at: %s\n", cfg.DatabasePath())
	return nil
}
