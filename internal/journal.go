package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/settings"
	"github.com/starford/fiftytwo/internal/storage"
)

// Journal bundles the stores opened over one storage backend.
type Journal struct {
	Provider storage.Provider
	Moments  *moments.Store
	Settings *settings.Service

	backend string
}

// OpenJournal opens the configured backend and loads the moment collection.
func OpenJournal(cfg StorageConfig, logger *slog.Logger) (*Journal, error) {
	provider, err := storage.Open(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return &Journal{
		Provider: provider,
		Moments:  moments.NewStore(provider, moments.WithLogger(logger)),
		Settings: settings.NewService(provider, logger),
		backend:  cfg.Backend,
	}, nil
}

// WatchRoot returns the directory holding the stored moments file, if the
// backend keeps one that a file watcher can observe.
func (j *Journal) WatchRoot() (string, bool) {
	if !storage.Watchable(j.backend) {
		return "", false
	}
	rooted, ok := j.Provider.(interface{ Root() string })
	if !ok {
		return "", false
	}
	return rooted.Root(), true
}

// Close releases the storage backend.
func (j *Journal) Close() error {
	return j.Provider.Close()
}
