// Package testutil provides shared test helpers for stores and storage.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/storage"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current frozen time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs returns an id generator yielding m-1, m-2, ...
func SequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("m-%d", n)
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a Moment Store over an in-memory provider with a fixed
// clock (2024-03-15 10:00 UTC) and sequential ids.
func TestStore(t *testing.T) (*moments.Store, *storage.Memory, *Clock) {
	t.Helper()
	mem := storage.NewMemory()
	clock := NewClock(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	store := moments.NewStore(mem,
		moments.WithClock(clock.Now),
		moments.WithIDGenerator(SequentialIDs()),
		moments.WithLogger(DiscardLogger()),
	)
	return store, mem, clock
}

// TestDataDir creates a temporary file-backed provider.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
