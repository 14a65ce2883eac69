package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/pushgate/internal/execlog"
)

func openTestDB(t *testing.T) *LastRunStore {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLastRunStore(db)
}

func TestLoadLastRunEmpty(t *testing.T) {
	store := openTestDB(t)

	_, ok, err := store.LoadLastRun(context.Background())
	if err != nil {
		t.Fatalf("LoadLastRun() error = %v", err)
	}
	if ok {
		t.Error("expected no record in fresh database")
	}
}

func TestSaveOverwritesSingletonRow(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	first := execlog.Record{Hook: "10-deploy", Branch: "master", ExitCode: 1, Stderr: "boom", At: time.Now()}
	second := execlog.Record{Hook: "20-notify", Branch: "release", Stdout: "sent", At: time.Now()}

	if err := store.SaveLastRun(ctx, first); err != nil {
		t.Fatalf("SaveLastRun() error = %v", err)
	}
	if err := store.SaveLastRun(ctx, second); err != nil {
		t.Fatalf("SaveLastRun() error = %v", err)
	}

	got, ok, err := store.LoadLastRun(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadLastRun() = %v, %v", ok, err)
	}
	if got.Hook != "20-notify" || got.Branch != "release" || got.Stdout != "sent" {
		t.Errorf("LoadLastRun() = %+v, want second record only", got)
	}
}

func TestOpenEmptyPathFails(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNetworkFilesystemRejected(t *testing.T) {
	err := validateFilesystemWithDetector("/mnt/share/state.db", func(string) (string, error) {
		return "nfs", nil
	})
	if err == nil {
		t.Error("expected error for nfs-backed path")
	}
}
