package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Database.Path != "exambank.db" {
		t.Errorf("default database path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q", cfg.Logging.Level)
	}
	if cfg.BankRoot != tmpDir {
		t.Errorf("BankRoot = %q, want %q", cfg.BankRoot, tmpDir)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.BankRoot = tmpDir
	cfg.Database.Path = "bank.db"
	cfg.Export.Format = "yaml"
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".exambank", "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Database.Path != "bank.db" {
		t.Errorf("reloaded database path = %q", loaded.Database.Path)
	}
	if loaded.Export.Format != "yaml" {
		t.Errorf("reloaded export format = %q", loaded.Export.Format)
	}
}

func TestDatabasePathResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BankRoot = "/bank"
	cfg.Database.Path = "exambank.db"
	if got := cfg.DatabasePath(); got != filepath.Join("/bank", "exambank.db") {
		t.Errorf("DatabasePath = %q", got)
	}

	cfg.Database.Path = "/elsewhere/bank.db"
	if got := cfg.DatabasePath(); got != "/elsewhere/bank.db" {
		t.Errorf("absolute DatabasePath = %q", got)
	}
}
