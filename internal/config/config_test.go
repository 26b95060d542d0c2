package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "dicilo.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Backup.Enabled {
		t.Error("backups enabled by default")
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Addr())
	}
	d, err := cfg.BackupInterval()
	if err != nil {
		t.Fatalf("backup interval: %v", err)
	}
	if d != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", d)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dicilo.toml")
	content := `
[server]
port = "9090"

[database]
path = "/var/lib/dicilo/data.db"

[logging]
level = "debug"
format = "json"

[backup]
enabled = true
interval = "6h"
passphrase = "file-secret"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/var/lib/dicilo/data.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !cfg.Backup.Enabled || cfg.Backup.Passphrase != "file-secret" {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	// Unset file values keep their defaults.
	if cfg.Backup.Dir != "backups" {
		t.Errorf("backup dir = %q, want backups", cfg.Backup.Dir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dicilo.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = \"9090\"\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DICILO_PORT", "7000")
	t.Setenv("DICILO_LOG_LEVEL", "warn")
	t.Setenv("DICILO_BACKUP_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("port = %q, want env override 7000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
	if !cfg.Backup.Enabled {
		t.Error("backup not enabled via env")
	}
}

func TestInvalidBackupInterval(t *testing.T) {
	t.Setenv("DICILO_BACKUP_INTERVAL", "sometimes")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid interval")
	}
}

func TestMissingFileIsFine(t *testing.T) {
	if _, err := Load("/nonexistent/dicilo.toml"); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
}
