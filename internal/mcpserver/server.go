// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the journal to LLM assistants via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fiftytwo/internal/apperr"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/photo"
	"github.com/starford/fiftytwo/internal/review"
	"github.com/starford/fiftytwo/internal/weeks"
)

const contractURI = "fiftytwo://week-numbering"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp   *server.MCPServer
	store *moments.Store
	now   func() time.Time
	photo photo.Options
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the clock used for default week and year.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithPhotoOptions bounds photos attached through attach_photo.
func WithPhotoOptions(o photo.Options) Option {
	return func(s *Server) { s.photo = o }
}

// New creates a new MCP server with all journal tools registered.
func New(store *moments.Store, opts ...Option) *Server {
	s := &Server{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	s.mcp = server.NewMCPServer(
		"fiftytwo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_moment",
		mcp.WithDescription("Save a moment for a week of the year. Week and year default to the "+
			"current ones; read the fiftytwo://week-numbering resource for how weeks are counted."),
		mcp.WithString("text", mcp.Required(), mcp.Description("What happened (must not be blank)")),
		mcp.WithString("title", mcp.Description("Optional short title")),
		mcp.WithNumber("week", mcp.Description("Week number 1-53 (default: current week)")),
		mcp.WithNumber("year", mcp.Description("Year (default: current year)")),
	), s.addMoment)

	s.mcp.AddTool(mcp.NewTool("list_moments",
		mcp.WithDescription("List saved moments as JSON. Without a year: newest week first across "+
			"all years. With a year: that year in week order."),
		mcp.WithNumber("year", mcp.Description("Optional year filter")),
	), s.listMoments)

	s.mcp.AddTool(mcp.NewTool("year_review",
		mcp.WithDescription("Render the review of one year as Markdown."),
		mcp.WithNumber("year", mcp.Description("Year to review (default: current year)")),
	), s.yearReview)

	s.mcp.AddTool(mcp.NewTool("delete_moment",
		mcp.WithDescription("Delete a moment by id. Deleting an unknown id is not an error."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Moment id")),
	), s.deleteMoment)

	s.mcp.AddTool(mcp.NewTool("current_week",
		mcp.WithDescription("Return the current week number, year, and the week's date range."),
	), s.currentWeek)

	s.mcp.AddTool(mcp.NewTool("attach_photo",
		mcp.WithDescription("Attach a photo to an existing moment, replacing any previous one. "+
			"The source is a base64 data URL or a path to a local image file."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Moment id")),
		mcp.WithString("source", mcp.Required(), mcp.Description("data:image/...;base64,... or local file path")),
	), s.attachPhoto)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Week Numbering Contract",
			mcp.WithResourceDescription("How fiftytwo numbers the weeks of a year."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("moment not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addMoment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	now := s.now()
	in := models.MomentInput{
		Text:       text,
		WeekNumber: req.GetInt("week", weeks.CurrentWeekNumber(now)),
		Year:       req.GetInt("year", now.Year()),
	}
	if title := req.GetString("title", ""); title != "" {
		in.Title = &title
	}

	m, err := s.store.Create(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(m)
}

func (s *Server) listMoments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var items []models.Moment
	if year := req.GetInt("year", 0); year != 0 {
		items = s.store.ListForYear(ctx, year)
	} else {
		items = s.store.ListAll(ctx)
	}
	// Photos are large inline payloads; assistants only need to know one exists.
	entries := review.Decorate(items)
	for i := range entries {
		if entries[i].HasPhoto() {
			marker := "attached"
			entries[i].Photo = &marker
		}
	}
	return jsonResult(entries)
}

func (s *Server) yearReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := s.now()
	year := req.GetInt("year", now.Year())
	y := review.BuildYear(year, s.store.ListForYear(ctx, year))
	md, err := review.Markdown(y, now)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) deleteMoment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if !removed {
		return mcp.NewToolResultText(fmt.Sprintf("no moment with id %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

type weekInfo struct {
	Week      int    `json:"week"`
	Year      int    `json:"year"`
	Label     string `json:"label"`
	DateRange string `json:"dateRange"`
}

func (s *Server) currentWeek(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := s.now()
	week := weeks.CurrentWeekNumber(now)
	return jsonResult(weekInfo{
		Week:      week,
		Year:      now.Year(),
		Label:     weeks.Label(week),
		DateRange: weeks.FormatRange(week, now.Year()),
	})
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     strings.TrimSpace(WeekNumberingContract) + "\n",
		},
	}, nil
}
