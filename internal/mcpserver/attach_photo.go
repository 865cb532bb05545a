package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/photo"
)

type attachResult struct {
	ID    string `json:"id"`
	Mime  string `json:"mime"`
	Bytes int    `json:"bytes"`
}

func (s *Server) attachPhoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}

	r, err := openSource(source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer r.Close()

	url, err := photo.Encode(r, s.photo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mime, data, err := photo.Decode(url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := s.store.Update(ctx, id, models.MomentInput{
		Text:       m.Text,
		Title:      m.Title,
		WeekNumber: m.WeekNumber,
		Year:       m.Year,
		Photo:      &url,
	})
	if err != nil {
		return toolError(err), nil
	}

	out, _ := json.Marshal(attachResult{ID: updated.ID, Mime: mime, Bytes: len(data)})
	return mcp.NewToolResultText(string(out)), nil
}

// openSource yields the raw image bytes of a data URL or a local file.
func openSource(source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "data:") {
		_, data, err := photo.Decode(source)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	path := filepath.Clean(source)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open photo: %s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	return f, nil
}
