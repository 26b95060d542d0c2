package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dicilo-app/dicilo/internal/config"
	"github.com/dicilo-app/dicilo/internal/database"
)

// fakeS3 implements s3Client for testing.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures int // fail the first N PutObject calls
	calls    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	data, _ := io.ReadAll(input.Body)
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func testManager(t *testing.T, client s3Client) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "dicilo.db")

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Backup{
		Enabled:    true,
		Interval:   "1h",
		Dir:        filepath.Join(dir, "backups"),
		Passphrase: "test-passphrase",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(cfg, time.Hour, db, dbPath, logger, nil)
	m.client = client
	m.retryBase = time.Millisecond
	return m, dbPath
}

func TestRunNowWritesEncryptedSnapshot(t *testing.T) {
	m, _ := testManager(t, nil)

	encPath, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	info, err := os.Stat(encPath)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if info.Size() <= saltSize+nonceSize {
		t.Errorf("snapshot too small: %d bytes", info.Size())
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("state = %s, want %s", status.State, StateIdle)
	}
	if status.LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
}

func TestRunNowUploadsToS3(t *testing.T) {
	client := newFakeS3()
	m, _ := testManager(t, client)
	m.cfg.S3.Bucket = "dicilo-backups"

	encPath, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	key := filepath.Base(encPath)
	if _, ok := client.objects[key]; !ok {
		t.Errorf("expected object %q in bucket, have %d objects", key, len(client.objects))
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	client := newFakeS3()
	client.failures = 2
	m, _ := testManager(t, client)
	m.cfg.S3.Bucket = "dicilo-backups"

	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if client.calls != 3 {
		t.Errorf("PutObject calls = %d, want 3", client.calls)
	}
	if len(client.objects) != 1 {
		t.Errorf("expected 1 uploaded object, got %d", len(client.objects))
	}
}

func TestRunNowWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "dicilo.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(config.Backup{Enabled: false}, time.Hour, db, dbPath, logger, nil)

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error when backups are disabled")
	}
}

func TestRestoreReplacesDatabase(t *testing.T) {
	m, dbPath := testManager(t, nil)

	if _, err := m.db.Exec("INSERT INTO system_settings (key, value) VALUES ('marker', 'before')"); err != nil {
		t.Fatalf("insert marker: %v", err)
	}

	encPath, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	// Change the row after the snapshot and flush it into the main file.
	if _, err := m.db.Exec("UPDATE system_settings SET value = 'after' WHERE key = 'marker'"); err != nil {
		t.Fatalf("update marker: %v", err)
	}
	if _, err := m.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if err := m.db.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	if err := m.Restore(encPath); err != nil {
		t.Fatalf("restore: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()

	var got string
	if err := db.QueryRow("SELECT value FROM system_settings WHERE key = 'marker'").Scan(&got); err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if got != "before" {
		t.Errorf("marker = %q, want %q (snapshot state)", got, "before")
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, dbPath := testManager(t, nil)

	encPath, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	original, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read database: %v", err)
	}

	m.cfg.Passphrase = "wrong"
	if err := m.Restore(encPath); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}

	// The live file must be untouched after a failed restore.
	after, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read database: %v", err)
	}
	if len(after) != len(original) {
		t.Errorf("database size changed after failed restore: %d -> %d", len(original), len(after))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, dbPath := testManager(t, nil)

	encPath, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	decPath := filepath.Join(t.TempDir(), "restored.db")
	if err := DecryptFile(encPath, decPath, "test-passphrase"); err != nil {
		t.Fatalf("decrypt snapshot: %v", err)
	}

	original, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	restored, err := os.ReadFile(decPath)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if len(restored) == 0 || len(original) == 0 {
		t.Fatal("expected non-empty database files")
	}
}
