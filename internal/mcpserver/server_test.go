package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/review"
	"github.com/starford/fiftytwo/internal/testutil"
)

func testServer(t *testing.T) (*Server, *moments.Store) {
	t.Helper()
	store, _, clock := testutil.TestStore(t)
	return New(store, WithClock(clock.Now)), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "add_moment":
		result, err = srv.addMoment(ctx, req)
	case "list_moments":
		result, err = srv.listMoments(ctx, req)
	case "year_review":
		result, err = srv.yearReview(ctx, req)
	case "delete_moment":
		result, err = srv.deleteMoment(ctx, req)
	case "current_week":
		result, err = srv.currentWeek(ctx, req)
	case "attach_photo":
		result, err = srv.attachPhoto(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddMomentDefaults(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "add_moment", map[string]any{"text": "Saw the sea", "title": "Coast"})
	if r.IsError {
		t.Fatalf("add_moment error: %s", resultText(r))
	}
	var m models.Moment
	if err := json.Unmarshal([]byte(resultText(r)), &m); err != nil {
		t.Fatal(err)
	}
	if m.WeekNumber != 11 || m.Year != 2024 {
		t.Errorf("week/year = %d/%d, want 11/2024", m.WeekNumber, m.Year)
	}
	if m.Title == nil || *m.Title != "Coast" {
		t.Errorf("title = %v", m.Title)
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d", store.Len())
	}
}

func TestAddMomentExplicitWeek(t *testing.T) {
	srv, _ := testServer(t)

	// JSON numbers arrive as float64.
	r := callTool(t, srv, "add_moment", map[string]any{"text": "x", "week": float64(52), "year": float64(2023)})
	var m models.Moment
	_ = json.Unmarshal([]byte(resultText(r)), &m)
	if m.WeekNumber != 52 || m.Year != 2023 {
		t.Errorf("week/year = %d/%d", m.WeekNumber, m.Year)
	}
}

func TestAddMomentRejectsBlank(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "add_moment", map[string]any{"text": "  "})
	if !r.IsError {
		t.Error("expected error for blank text")
	}
	r = callTool(t, srv, "add_moment", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing text")
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d, want 0", store.Len())
	}
}

func TestListMoments(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_moment", map[string]any{"text": "a", "week": float64(3), "year": float64(2024)})
	callTool(t, srv, "add_moment", map[string]any{"text": "b", "week": float64(9), "year": float64(2024)})
	callTool(t, srv, "add_moment", map[string]any{"text": "c", "week": float64(1), "year": float64(2023)})

	var all []review.Entry
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_moments", nil))), &all)
	if len(all) != 3 || all[0].Text != "b" || all[2].Text != "c" {
		t.Errorf("timeline = %+v", all)
	}

	var year []review.Entry
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_moments", map[string]any{"year": float64(2024)}))), &year)
	if len(year) != 2 || year[0].Text != "a" {
		t.Errorf("year listing = %+v", year)
	}
}

func TestYearReview(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_moment", map[string]any{"text": "first week", "week": float64(1)})

	text := resultText(callTool(t, srv, "year_review", map[string]any{}))
	if !strings.Contains(text, "year: 2024") || !strings.Contains(text, "first week") {
		t.Errorf("review = %q", text)
	}
}

func TestDeleteMoment(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "add_moment", map[string]any{"text": "gone"})
	var m models.Moment
	_ = json.Unmarshal([]byte(resultText(r)), &m)

	r = callTool(t, srv, "delete_moment", map[string]any{"id": m.ID})
	if r.IsError || store.Len() != 0 {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	// Unknown ids are not an error.
	if r := callTool(t, srv, "delete_moment", map[string]any{"id": m.ID}); r.IsError {
		t.Errorf("second delete: %s", resultText(r))
	}
}

func TestCurrentWeek(t *testing.T) {
	srv, _ := testServer(t)

	var w weekInfo
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "current_week", nil))), &w)
	if w.Week != 11 || w.Year != 2024 || w.DateRange != "11 мар. — 17 мар." {
		t.Errorf("current week = %+v", w)
	}
}

func pngDataURL(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Bytes()
}

func TestAttachPhoto(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "add_moment", map[string]any{"text": "pic", "title": "keep me"})
	var m models.Moment
	_ = json.Unmarshal([]byte(resultText(r)), &m)

	dataURL, raw := pngDataURL(t)

	r = callTool(t, srv, "attach_photo", map[string]any{"id": m.ID, "source": dataURL})
	if r.IsError {
		t.Fatalf("attach from data URL: %s", resultText(r))
	}

	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "attach_photo", map[string]any{"id": m.ID, "source": path})
	if r.IsError {
		t.Fatalf("attach from file: %s", resultText(r))
	}

	got, err := store.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasPhoto() || got.Title == nil || *got.Title != "keep me" {
		t.Errorf("moment after attach = %+v", got)
	}
}

func TestAttachPhotoErrors(t *testing.T) {
	srv, _ := testServer(t)
	dataURL, _ := pngDataURL(t)

	if r := callTool(t, srv, "attach_photo", map[string]any{"id": "missing", "source": dataURL}); !r.IsError {
		t.Error("expected error for unknown moment")
	}

	r := callTool(t, srv, "add_moment", map[string]any{"text": "x"})
	var m models.Moment
	_ = json.Unmarshal([]byte(resultText(r)), &m)

	notImage := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))
	if r := callTool(t, srv, "attach_photo", map[string]any{"id": m.ID, "source": notImage}); !r.IsError {
		t.Error("expected error for non-image")
	}
	if r := callTool(t, srv, "attach_photo", map[string]any{"id": m.ID, "source": filepath.Join(t.TempDir(), "nope.png")}); !r.IsError {
		t.Error("expected error for missing file")
	}
}

func TestContractResource(t *testing.T) {
	srv, _ := testServer(t)

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != contractURI || !strings.Contains(tc.Text, "Week 1 starts on January 1") {
		t.Errorf("resource = %+v", contents)
	}
}
