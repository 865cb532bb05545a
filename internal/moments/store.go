// Package moments owns the canonical, ordered collection of journal moments
// and mirrors it to durable storage after every mutation.
package moments

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/fiftytwo/internal/apperr"
	"github.com/starford/fiftytwo/internal/checksum"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/storage"
	"github.com/starford/fiftytwo/internal/weeks"
)

// StorageKey is the durable-storage key holding the serialized collection.
const StorageKey = "moments"

// Store is the Moment Store. The zero value is not usable; call NewStore.
type Store struct {
	mu      sync.RWMutex
	items   []models.Moment // sorted descending by (year, weekNumber)
	lastSum string          // checksum of the last payload written or loaded

	provider storage.Provider
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides moment id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger for persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store backed by provider and loads the stored collection.
// A missing or corrupt stored collection yields an empty store, never an error.
func NewStore(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items, s.lastSum, _ = s.read()
	return s
}

// Create validates in and inserts a new moment.
func (s *Store) Create(_ context.Context, in models.MomentInput) (*models.Moment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()

	m := models.Moment{
		ID:         s.newID(),
		Text:       in.Text,
		Title:      in.Title,
		CreatedAt:  s.now(),
		WeekNumber: in.WeekNumber,
		Year:       in.Year,
		Photo:      in.Photo,
	}.Clone()
	// Newest first among equal (year, week) keys.
	s.items = append([]models.Moment{m}, s.items...)
	sortTimeline(s.items)
	s.persistLocked()

	out := m.Clone()
	return &out, nil
}

// Update replaces every editable field of the moment with the given id.
// The collection is re-sorted afterwards so the timeline order always holds.
func (s *Store) Update(_ context.Context, id string, in models.MomentInput) (*models.Moment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("moment %s: %w", id, apperr.ErrNotFound)
	}
	edited := models.Moment{
		ID:         s.items[i].ID,
		Text:       in.Text,
		Title:      in.Title,
		CreatedAt:  s.items[i].CreatedAt,
		WeekNumber: in.WeekNumber,
		Year:       in.Year,
		Photo:      in.Photo,
	}.Clone()
	s.items[i] = edited
	out := edited.Clone()

	sortTimeline(s.items)
	s.persistLocked()
	return &out, nil
}

// Delete removes the moment with the given id and reports whether it
// existed. Unknown ids are a no-op.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.persistLocked()
	return true, nil
}

// Get returns a copy of one moment.
func (s *Store) Get(_ context.Context, id string) (*models.Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("moment %s: %w", id, apperr.ErrNotFound)
	}
	out := s.items[i].Clone()
	return &out, nil
}

// ListAll returns the timeline: every moment, descending by (year, week).
func (s *Store) ListAll(_ context.Context) []models.Moment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Moment, len(s.items))
	for i, m := range s.items {
		out[i] = m.Clone()
	}
	return out
}

// ListForYear returns the moments filed under year, ascending by week.
func (s *Store) ListForYear(_ context.Context, year int) []models.Moment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Moment{}
	for _, m := range s.items {
		if m.Year == year {
			out = append(out, m.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b models.Moment) int {
		return cmp.Compare(a.WeekNumber, b.WeekNumber)
	})
	return out
}

// Len returns the number of stored moments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reload re-reads the stored collection. It reports whether the in-memory
// collection changed, which is false when the stored payload is the one this
// store wrote or loaded last, or when storage could not be read.
func (s *Store) Reload(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

// reloadLocked adopts the stored collection if another process replaced it.
// Mutations call it first so they never write back a stale snapshot.
func (s *Store) reloadLocked() bool {
	items, sum, ok := s.read()
	if !ok || sum == s.lastSum {
		return false
	}
	s.items, s.lastSum = items, sum
	s.logger.Info("moments reloaded from storage", slog.Int("count", len(items)))
	return true
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(m models.Moment) bool { return m.ID == id })
}

// persistLocked writes the whole collection. Failures are logged and the
// in-memory mutation stands; the next successful write catches up.
func (s *Store) persistLocked() {
	data, err := Encode(s.items)
	if err != nil {
		s.logger.Error("encode moments failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(StorageKey, data); err != nil {
		s.logger.Error("persist moments failed", slog.String("error", err.Error()))
		return
	}
	s.lastSum = checksum.Sum(data)
}

// read loads the stored collection and the checksum of its payload. An absent
// key or an undecodable payload is an empty collection. ok is false only when
// storage itself failed, in which case the caller keeps what it has.
func (s *Store) read() (items []models.Moment, sum string, ok bool) {
	data, err := s.provider.Get(StorageKey)
	if err != nil {
		if isNotExist(err) {
			return []models.Moment{}, "", true
		}
		s.logger.Warn("read moments failed", slog.String("error", err.Error()))
		return []models.Moment{}, "", false
	}
	items, dropped, err := Decode(data)
	if err != nil {
		s.logger.Warn("stored moments unreadable, starting empty", slog.String("error", err.Error()))
		return []models.Moment{}, checksum.Sum(data), true
	}
	for _, d := range dropped {
		s.logger.Warn("dropped malformed moment", slog.Int("index", d.Index), slog.String("error", d.Err.Error()))
	}
	sortTimeline(items)
	return items, checksum.Sum(data), true
}

// sortTimeline orders moments descending by (year, weekNumber). Equal keys
// keep their relative order.
func sortTimeline(items []models.Moment) {
	slices.SortStableFunc(items, func(a, b models.Moment) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.WeekNumber, a.WeekNumber)
	})
}

var notBlank = validation.By(func(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be blank")
	}
	return nil
})

func validateInput(in models.MomentInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Text, notBlank),
		validation.Field(&in.WeekNumber, validation.Required, validation.Min(weeks.MinWeek), validation.Max(weeks.MaxWeek)),
		validation.Field(&in.Year, validation.Required, validation.Min(1), validation.Max(9999)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error())
	}
	return nil
}
