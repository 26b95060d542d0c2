// Package backup takes encrypted snapshots of the SQLite database on an
// interval and optionally uploads them to S3-compatible storage.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/dicilo-app/dicilo/internal/config"
)

// s3Client is the slice of the S3 API the manager uses, kept as an
// interface so tests can substitute a fake.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager takes periodic encrypted snapshots of the database file.
type Manager struct {
	mu       sync.RWMutex
	cfg      config.Backup
	dbPath   string
	interval time.Duration
	status   Status
	callback StatusCallback

	db        *sql.DB
	client    s3Client
	logger    *slog.Logger
	retryBase time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager from the backup section of the
// configuration. The manager stays disabled when backups are off or no
// passphrase is set.
func NewManager(cfg config.Backup, interval time.Duration, db *sql.DB, dbPath string, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:      cfg,
		dbPath:   dbPath,
		interval: interval,
		db:       db,
		logger:   logger,
		callback: callback,
		status:   Status{State: StateDisabled},

		retryBase: 2 * time.Second,
	}

	if cfg.Enabled && cfg.Passphrase != "" {
		m.status.State = StateIdle
		if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
			m.client = newS3Client(cfg.S3)
		}
	}

	return m
}

func newS3Client(cfg config.S3) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. It is a no-op when backups are
// disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the scheduler and waits for an in-flight backup to finish.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// RunNow takes a snapshot immediately and returns the path of the encrypted
// file written to the local backup directory.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.status.State == StateDisabled {
		m.mu.RUnlock()
		return "", fmt.Errorf("backups are disabled")
	}
	if m.status.InProgress {
		m.mu.RUnlock()
		return "", fmt.Errorf("backup already in progress")
	}
	client := m.client
	m.mu.RUnlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	encPath, err := m.snapshot(ctx)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return "", err
	}

	if client != nil {
		if err := m.upload(ctx, client, encPath); err != nil {
			m.setStatus(Status{State: StateError, Error: err.Error()})
			return encPath, err
		}
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup complete", "file", encPath, "uploaded", client != nil)
	return encPath, nil
}

// snapshot checkpoints the WAL, copies the database file, and writes an
// encrypted copy into the backup directory.
func (m *Manager) snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0700); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	dbCopy := filepath.Join(os.TempDir(), fmt.Sprintf("dicilo-backup-%s.db", timestamp))
	encPath := filepath.Join(m.cfg.Dir, fmt.Sprintf("dicilo-%s.db.enc", timestamp))
	defer os.Remove(dbCopy)

	// Flush the WAL so the main file holds every committed transaction.
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("wal checkpoint: %w", err)
	}

	if err := copyFile(m.dbPath, dbCopy); err != nil {
		return "", fmt.Errorf("copy database: %w", err)
	}

	if err := encryptFile(dbCopy, encPath, m.cfg.Passphrase); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	return encPath, nil
}

// upload pushes the encrypted snapshot to S3, retrying transient failures
// with capped exponential backoff.
func (m *Manager) upload(ctx context.Context, client s3Client, encPath string) error {
	key := filepath.Base(encPath)

	backoff := retry.WithMaxRetries(3, retry.NewExponential(m.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := os.Open(encPath)
		if err != nil {
			return fmt.Errorf("open encrypted file: %w", err)
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat encrypted file: %w", err)
		}

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.S3.Bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentLength: aws.Int64(stat.Size()),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	return nil
}

// Restore decrypts an encrypted snapshot, validates it, and replaces the
// live database file. The caller must restart the process afterwards so the
// connection pool reopens against the restored file.
func (m *Manager) Restore(encPath string) error {
	decPath := filepath.Join(os.TempDir(), "dicilo-restore.db")
	defer os.Remove(decPath)

	if err := DecryptFile(encPath, decPath, m.cfg.Passphrase); err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmpDB, err := sql.Open("sqlite", decPath)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	if err := tmpDB.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		tmpDB.Close()
		return fmt.Errorf("integrity check: %w", err)
	}
	tmpDB.Close()
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := copyFile(decPath, m.dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	os.Remove(m.dbPath + "-wal")
	os.Remove(m.dbPath + "-shm")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
