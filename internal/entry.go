// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fiftytwo/internal/api"
	"github.com/starford/fiftytwo/internal/mcpserver"
	"github.com/starford/fiftytwo/internal/metrics"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/photo"
	"github.com/starford/fiftytwo/internal/sse"
	"github.com/starford/fiftytwo/internal/watcher"
)

func (a *application) init(opts []Option) error {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logger == nil {
		// Initialize structured JSON logger.
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	slog.SetDefault(a.logger)
	return nil
}

// NewHTTPHandler builds the full HTTP surface: health checks, metrics when
// collector is non-nil, and the API under /api.
func NewHTTPHandler(d api.Deps, cfg HTTPConfig, collector *metrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if collector != nil {
		r.Use(collector.Middleware)
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if collector != nil {
		r.Handle("/metrics", collector.Handler())
	}

	r.Mount("/api", api.NewRouter(d))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts); err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	journal, err := OpenJournal(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer journal.Close()

	logger.Info("Journal loaded", slog.Int("moments", journal.Moments.Len()))

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	var collector *metrics.Collector
	events := api.Publishers{broker}
	if cfg.App.HTTP.Metrics {
		collector = metrics.NewCollector(journal.Moments.Len)
		events = append(events, collector)
	}

	handler := NewHTTPHandler(api.Deps{
		Moments:  journal.Moments,
		Settings: journal.Settings,
		Events:   events,
		SSE:      broker,
		Photo: photo.Options{
			MaxBytes:     cfg.Photo.MaxBytes,
			MaxDimension: cfg.Photo.MaxDimension,
		},
	}, cfg.App.HTTP, collector)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload when another process rewrites the stored moments.
	if root, ok := journal.WatchRoot(); ok && cfg.Watch.Enabled {
		g.Go(func() error {
			err := watcher.Watch(gCtx, root, moments.StorageKey, cfg.Watch.Debounce, logger,
				journal.Moments.Reload,
				func() { events.PublishMomentEvent(sse.KindReloaded, "") },
			)
			if err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to stdout,
// so callers should pass WithLogger with a stderr handler.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts); err != nil {
		return err
	}
	cfg := app.config

	journal, err := OpenJournal(cfg.Storage, app.logger)
	if err != nil {
		return err
	}
	defer journal.Close()

	srv := mcpserver.New(journal.Moments, mcpserver.WithPhotoOptions(photo.Options{
		MaxBytes:     cfg.Photo.MaxBytes,
		MaxDimension: cfg.Photo.MaxDimension,
	}))
	// The page server may be writing the same journal.
	if root, ok := journal.WatchRoot(); ok && cfg.Watch.Enabled {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := watcher.Watch(watchCtx, root, moments.StorageKey, cfg.Watch.Debounce, app.logger,
				journal.Moments.Reload, nil)
			if err != nil {
				app.logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
		}()
	}

	app.logger.Info("MCP server starting on stdio", slog.Int("moments", journal.Moments.Len()))
	return srv.ServeStdio()
}
