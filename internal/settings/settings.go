// Package settings persists the appearance preferences. Each preference is
// stored under its own key and read back independently.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/starford/fiftytwo/internal/apperr"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/storage"
)

// Storage keys.
const (
	KeyTheme           = "theme"
	KeyAccentColor     = "accent-color"
	KeyBackgroundColor = "background-color"
)

// Defaults applied when a preference was never set or cannot be read.
var Defaults = models.Preferences{
	Theme:           models.ThemeLight,
	AccentColor:     "#8b5cf6",
	BackgroundColor: "#faf5ff",
}

// Service reads and writes appearance preferences.
type Service struct {
	provider storage.Provider
	logger   *slog.Logger
}

// NewService creates a settings service over provider.
func NewService(provider storage.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, logger: logger}
}

// Get returns the current preferences, substituting defaults for anything
// absent or unreadable.
func (s *Service) Get(_ context.Context) models.Preferences {
	p := Defaults
	if v, ok := s.read(KeyTheme); ok {
		if t := models.Theme(v); ValidateTheme(t) == nil {
			p.Theme = t
		} else {
			s.logger.Warn("ignoring stored theme", slog.String("value", v))
		}
	}
	if v, ok := s.read(KeyAccentColor); ok {
		if c, err := checkColor(KeyAccentColor, v); err == nil {
			p.AccentColor = c
		}
	}
	if v, ok := s.read(KeyBackgroundColor); ok {
		if c, err := checkColor(KeyBackgroundColor, v); err == nil {
			p.BackgroundColor = c
		}
	}
	return p
}

// SetTheme stores the theme; only light and dark are accepted.
func (s *Service) SetTheme(_ context.Context, t models.Theme) error {
	if err := ValidateTheme(t); err != nil {
		return err
	}
	return s.write(KeyTheme, string(t))
}

// SetAccentColor stores the accent color.
func (s *Service) SetAccentColor(_ context.Context, c string) error {
	return s.setColor(KeyAccentColor, c)
}

// SetBackgroundColor stores the background color.
func (s *Service) SetBackgroundColor(_ context.Context, c string) error {
	return s.setColor(KeyBackgroundColor, c)
}

// Apply stores every non-empty field of patch and returns the result.
// Nothing is written unless every present field is valid.
func (s *Service) Apply(ctx context.Context, patch models.Preferences) (models.Preferences, error) {
	type write struct{ key, value string }
	var writes []write

	if patch.Theme != "" {
		if err := ValidateTheme(patch.Theme); err != nil {
			return models.Preferences{}, err
		}
		writes = append(writes, write{KeyTheme, string(patch.Theme)})
	}
	if patch.AccentColor != "" {
		c, err := checkColor(KeyAccentColor, patch.AccentColor)
		if err != nil {
			return models.Preferences{}, err
		}
		writes = append(writes, write{KeyAccentColor, c})
	}
	if patch.BackgroundColor != "" {
		c, err := checkColor(KeyBackgroundColor, patch.BackgroundColor)
		if err != nil {
			return models.Preferences{}, err
		}
		writes = append(writes, write{KeyBackgroundColor, c})
	}

	for _, w := range writes {
		if err := s.write(w.key, w.value); err != nil {
			return models.Preferences{}, err
		}
	}
	return s.Get(ctx), nil
}

// ValidateTheme accepts only the known themes.
func ValidateTheme(t models.Theme) error {
	err := validation.Validate(string(t),
		validation.Required,
		validation.In(string(models.ThemeLight), string(models.ThemeDark)),
	)
	if err != nil {
		return fmt.Errorf("%w: theme %s", apperr.ErrValidation, err.Error())
	}
	return nil
}

// NormalizeColor lowercases hex colors; any other value is kept verbatim.
func NormalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if col, err := colorful.Hex(c); err == nil {
		return col.Hex()
	}
	return c
}

func (s *Service) setColor(key, c string) error {
	c, err := checkColor(key, c)
	if err != nil {
		return err
	}
	return s.write(key, c)
}

// checkColor normalizes c and rejects values that are blank or that could
// escape a CSS declaration in theme.css.
func checkColor(key, c string) (string, error) {
	c = NormalizeColor(c)
	if c == "" {
		return "", fmt.Errorf("%w: %s must not be empty", apperr.ErrValidation, key)
	}
	if !safeCSSValue(c) {
		return "", fmt.Errorf("%w: %s contains characters not allowed in a color", apperr.ErrValidation, key)
	}
	return c, nil
}

func safeCSSValue(v string) bool {
	return !strings.ContainsAny(v, ";{}<>\\\"'\r\n")
}

func (s *Service) read(key string) (string, bool) {
	data, err := s.provider.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("read preference failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func (s *Service) write(key, value string) error {
	if err := s.provider.Set(key, []byte(value)); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
