// Package config loads server configuration from defaults, an optional TOML
// file, and environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Server struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

type Database struct {
	Path string `toml:"path"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type S3 struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type Backup struct {
	Enabled    bool   `toml:"enabled"`
	Interval   string `toml:"interval"`
	Dir        string `toml:"dir"`
	Passphrase string `toml:"passphrase"`
	S3         S3     `toml:"s3"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Logging  Logging  `toml:"logging"`
	Backup   Backup   `toml:"backup"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   Server{Host: "", Port: "8080"},
		Database: Database{Path: "dicilo.db"},
		Logging:  Logging{Level: "info", Format: "text"},
		Backup: Backup{
			Enabled:  false,
			Interval: "24h",
			Dir:      "backups",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// it exists), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if _, err := cfg.BackupInterval(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Server.Host, "DICILO_HOST")
	setFromEnv(&cfg.Server.Port, "DICILO_PORT")
	setFromEnv(&cfg.Database.Path, "DICILO_DB_PATH")
	setFromEnv(&cfg.Logging.Level, "DICILO_LOG_LEVEL")
	setFromEnv(&cfg.Logging.Format, "DICILO_LOG_FORMAT")
	setFromEnv(&cfg.Backup.Interval, "DICILO_BACKUP_INTERVAL")
	setFromEnv(&cfg.Backup.Dir, "DICILO_BACKUP_DIR")
	setFromEnv(&cfg.Backup.Passphrase, "DICILO_BACKUP_PASSPHRASE")
	setFromEnv(&cfg.Backup.S3.Endpoint, "DICILO_S3_ENDPOINT")
	setFromEnv(&cfg.Backup.S3.Bucket, "DICILO_S3_BUCKET")
	setFromEnv(&cfg.Backup.S3.Region, "DICILO_S3_REGION")
	setFromEnv(&cfg.Backup.S3.AccessKey, "DICILO_S3_ACCESS_KEY")
	setFromEnv(&cfg.Backup.S3.SecretKey, "DICILO_S3_SECRET_KEY")

	if v := os.Getenv("DICILO_BACKUP_ENABLED"); v != "" {
		cfg.Backup.Enabled = v == "true" || v == "1"
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// BackupInterval parses the configured backup interval.
func (c Config) BackupInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Backup.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid backup interval %q: %w", c.Backup.Interval, err)
	}
	return d, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
