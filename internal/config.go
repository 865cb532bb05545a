package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/fiftytwo/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Watch   WatchConfig       `yaml:"watch"`
	Photo   PhotoConfig       `yaml:"photo"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Photo.Validate(); err != nil {
		return fmt.Errorf("photo: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CORSOrigins lists page origins allowed to call the API from a
	// separate dev server. Empty disables CORS handling.
	CORSOrigins []string `yaml:"cors_origins"`
	Metrics     bool     `yaml:"metrics"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required, is.URL)),
	)
}

// StorageConfig selects where the journal is kept.
//
// Path is a directory for the fs and diskv backends and a database file for
// sqlite. It is ignored by the memory backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = storage.BackendFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(
			storage.BackendFS, storage.BackendDiskv, storage.BackendSQLite, storage.BackendMemory,
		)),
		validation.Field(&c.Path, validation.When(c.Backend != storage.BackendMemory, validation.Required)),
	)
}

// WatchConfig controls reloading when another process edits the journal.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// PhotoConfig bounds attached photos.
type PhotoConfig struct {
	MaxBytes     int64 `yaml:"max_bytes"`
	MaxDimension int   `yaml:"max_dimension"`
}

// Validate validates the photo configuration.
func (c *PhotoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1024))),
		validation.Field(&c.MaxDimension, validation.Required, validation.Min(16), validation.Max(8192)),
	)
}

// EventsConfig tunes the SSE stream.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8052,
				CORSOrigins: []string{"http://localhost:5173"},
				Metrics:     true,
			},
		},
		Storage: StorageConfig{
			Backend: storage.BackendFS,
			Path:    "./data",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
		},
		Photo: PhotoConfig{
			MaxBytes:     10 << 20,
			MaxDimension: 1600,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
