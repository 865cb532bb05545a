package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/storage"
	"github.com/starford/fiftytwo/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ExternalWriteReloads(t *testing.T) {
	dir, fs := testutil.TestDataDir(t)
	logger := testutil.DiscardLogger()
	store := moments.NewStore(fs, moments.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	go Watch(ctx, dir, moments.StorageKey, 20*time.Millisecond, logger, store.Reload, func() {
		changes.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	other, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = other.Set(moments.StorageKey, []byte(`[{"id":"ext","text":"written elsewhere","createdAt":"2024-02-01T00:00:00Z","weekNumber":5,"year":2024}]`))

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return store.Len() == 1
	}, "store did not pick up external write")
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return changes.Load() >= 1
	}, "change callback not called")
}

func TestWatch_DiskvExternalWriteReloads(t *testing.T) {
	dir := t.TempDir()
	dv, err := storage.NewDiskv(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := testutil.DiscardLogger()
	store := moments.NewStore(dv, moments.WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Populate the backend through this process first, so any read cache
	// would hold the old collection.
	if _, err := store.Create(ctx, models.MomentInput{Text: "mine", WeekNumber: 1, Year: 2024}); err != nil {
		t.Fatal(err)
	}

	go Watch(ctx, dv.Root(), moments.StorageKey, 20*time.Millisecond, logger, store.Reload, nil)
	time.Sleep(100 * time.Millisecond)

	payload := `[{"id":"a","text":"one","createdAt":"2024-02-01T00:00:00Z","weekNumber":5,"year":2024},` +
		`{"id":"b","text":"two","createdAt":"2024-02-02T00:00:00Z","weekNumber":6,"year":2024}]`
	if err := os.WriteFile(filepath.Join(dv.Root(), moments.StorageKey), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return store.Len() == 2
	}, "diskv-backed store did not pick up external write")
}

func TestWatch_OwnWritesIgnored(t *testing.T) {
	dir, fs := testutil.TestDataDir(t)
	logger := testutil.DiscardLogger()
	store := moments.NewStore(fs, moments.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	go Watch(ctx, dir, moments.StorageKey, 20*time.Millisecond, logger, store.Reload, func() {
		changes.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	_, _ = store.Create(ctx, models.MomentInput{Text: "mine", WeekNumber: 1, Year: 2024})
	time.Sleep(300 * time.Millisecond)

	if n := changes.Load(); n != 0 {
		t.Errorf("own write triggered %d reloads", n)
	}
	if store.Len() != 1 {
		t.Errorf("len = %d", store.Len())
	}
}

func TestWatch_OtherKeysIgnored(t *testing.T) {
	dir, _ := testutil.TestDataDir(t)
	logger := testutil.DiscardLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go Watch(ctx, dir, moments.StorageKey, 20*time.Millisecond, logger, func(context.Context) bool {
		reloads.Add(1)
		return true
	}, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "theme"), []byte("dark"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	dir, _ := testutil.TestDataDir(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, moments.StorageKey, 0, testutil.DiscardLogger(), func(context.Context) bool { return false }, nil)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), moments.StorageKey, 0, testutil.DiscardLogger(), func(context.Context) bool { return false }, nil)
	if err == nil {
		t.Error("expected error for missing root")
	}
}
