package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/fiftytwo/internal/api"
	"github.com/starford/fiftytwo/internal/metrics"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/testutil"
)

func TestOpenJournal_FSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := StorageConfig{Backend: "fs", Path: dir}

	j, err := OpenJournal(cfg, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	if _, err := j.Moments.Create(context.Background(), models.MomentInput{Text: "kept", WeekNumber: 4, Year: 2024}); err != nil {
		t.Fatal(err)
	}
	root, ok := j.WatchRoot()
	if !ok || root != dir {
		t.Errorf("WatchRoot = %q, %v", root, ok)
	}
	_ = j.Close()

	reopened, err := OpenJournal(cfg, testutil.DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.Moments.Len() != 1 {
		t.Errorf("reopened len = %d, want 1", reopened.Moments.Len())
	}
}

func TestOpenJournal_NotWatchable(t *testing.T) {
	for _, cfg := range []StorageConfig{
		{Backend: "memory"},
		{Backend: "sqlite", Path: t.TempDir() + "/journal.db"},
	} {
		j, err := OpenJournal(cfg, testutil.DiscardLogger())
		if err != nil {
			t.Fatalf("%s: %v", cfg.Backend, err)
		}
		if _, ok := j.WatchRoot(); ok {
			t.Errorf("%s should not be watchable", cfg.Backend)
		}
		_ = j.Close()
	}
}

func TestHTTPHandler_HealthAndAPIMount(t *testing.T) {
	store, _, clock := testutil.TestStore(t)
	collector := metrics.NewCollector(store.Len)
	h := NewHTTPHandler(api.Deps{Moments: store, Now: clock.Now}, HTTPConfig{Port: 1}, collector)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
			t.Errorf("%s = %d %s", path, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weeks/current", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"week":11`) {
		t.Errorf("/api/weeks/current = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `route="/api/weeks/current"`) {
		t.Errorf("metrics missing api route:\n%s", w.Body.String())
	}
}

func TestHTTPHandler_CORS(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	h := NewHTTPHandler(api.Deps{Moments: store}, HTTPConfig{Port: 1, CORSOrigins: []string{"http://localhost:5173"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/moments", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
