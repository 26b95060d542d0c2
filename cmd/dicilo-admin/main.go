// Command dicilo-admin performs operator bootstrap tasks against the
// database directly: creating admin users, setting the DiciPoints master
// password, and adjusting the point value. It can also restore an encrypted
// backup snapshot over the live database file.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dicilo-app/dicilo/internal/backup"
	"github.com/dicilo-app/dicilo/internal/config"
	"github.com/dicilo-app/dicilo/internal/database"
	"github.com/dicilo-app/dicilo/internal/security"
	"github.com/dicilo-app/dicilo/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: dicilo-admin <command> [args]

commands:
  create-admin <email> <name> <password>   create an admin user
  set-master-password <password>           set the DiciPoints master password
  set-point-value <value>                  set the EUR value of one point
  restore <file>                           restore an encrypted backup snapshot
`)
	os.Exit(2)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load(os.Getenv("DICILO_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// restore runs before the database is opened: the live file is the one
	// being replaced, and it may be corrupt.
	if os.Args[1] == "restore" {
		if len(os.Args) != 3 {
			usage()
		}
		if cfg.Backup.Passphrase == "" {
			return fmt.Errorf("backup passphrase is not configured")
		}
		mgr := backup.NewManager(cfg.Backup, 0, nil, cfg.Database.Path, slog.Default(), nil)
		if err := mgr.Restore(os.Args[2]); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Printf("restored %s from %s\n", cfg.Database.Path, os.Args[2])
		return nil
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	settings := store.NewSettingsStore(db)

	switch os.Args[1] {
	case "create-admin":
		if len(os.Args) != 5 {
			usage()
		}
		admins := store.NewAdminStore(db)
		admin, err := admins.Create(os.Args[2], os.Args[3], os.Args[4])
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Printf("created admin %s (id %d)\n", admin.Email, admin.ID)

	case "set-master-password":
		if len(os.Args) != 3 {
			usage()
		}
		verifier := security.NewVerifier(settings, store.KeyMasterPassword)
		if err := verifier.SetSecret(os.Args[2]); err != nil {
			return err
		}
		fmt.Println("master password updated")

	case "set-point-value":
		if len(os.Args) != 3 {
			usage()
		}
		v, err := strconv.ParseFloat(os.Args[2], 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid point value %q", os.Args[2])
		}
		if err := settings.SetPointValue(v); err != nil {
			return fmt.Errorf("set point value: %w", err)
		}
		fmt.Printf("point value set to %.4f EUR\n", v)

	default:
		usage()
	}

	return nil
}
