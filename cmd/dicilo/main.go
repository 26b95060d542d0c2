package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dicilo-app/dicilo/internal/backup"
	"github.com/dicilo-app/dicilo/internal/config"
	"github.com/dicilo-app/dicilo/internal/database"
	"github.com/dicilo-app/dicilo/internal/logging"
	"github.com/dicilo-app/dicilo/internal/revalidate"
	"github.com/dicilo-app/dicilo/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("DICILO_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	secureCookies := os.Getenv("DICILO_SECURE_COOKIES") == "true"
	srv := server.New(db, secureCookies, logger)

	interval, err := cfg.BackupInterval()
	if err != nil {
		return err
	}
	backupMgr := backup.NewManager(cfg.Backup, interval, db, cfg.Database.Path,
		logger.With("component", "backup"), func(s backup.Status) {
			srv.Hub().Broadcast(revalidate.Hint{
				Entity: "backup",
				Action: string(s.State),
			})
		})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	// Housekeeping: expired admin sessions and stale rate-limit buckets.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := srv.AdminStore().DeleteExpiredSessions(); err != nil {
					logger.Error("session cleanup", "error", err)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	})

	return g.Wait()
}
