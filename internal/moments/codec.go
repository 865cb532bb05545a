package moments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/storage"
	"github.com/starford/fiftytwo/internal/weeks"
)

// record is the persisted shape of a Moment. CreatedAt is kept as a string
// so that one bad timestamp fails only its own record.
type record struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Title      *string `json:"title,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	WeekNumber int     `json:"weekNumber"`
	Year       int     `json:"year"`
	Photo      *string `json:"photo,omitempty"`
}

// DroppedRecord describes a stored record that Decode skipped.
type DroppedRecord struct {
	Index int
	Err   error
}

// Encode serializes moments as a JSON array with RFC 3339 timestamps.
func Encode(items []models.Moment) ([]byte, error) {
	recs := make([]record, len(items))
	for i, m := range items {
		recs[i] = record{
			ID:         m.ID,
			Text:       m.Text,
			Title:      m.Title,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339Nano),
			WeekNumber: m.WeekNumber,
			Year:       m.Year,
			Photo:      m.Photo,
		}
	}
	return json.Marshal(recs)
}

// Decode parses a stored collection. A payload that is not a JSON array is an
// error; individual malformed records are skipped and reported in dropped.
func Decode(data []byte) ([]models.Moment, []DroppedRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("decode moments: %w", err)
	}

	out := make([]models.Moment, 0, len(raws))
	var dropped []DroppedRecord
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		m, err := decodeRecord(raw)
		if err == nil {
			if _, dup := seen[m.ID]; dup {
				err = fmt.Errorf("duplicate id %q", m.ID)
			}
		}
		if err != nil {
			dropped = append(dropped, DroppedRecord{Index: i, Err: err})
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, dropped, nil
}

func decodeRecord(raw json.RawMessage) (models.Moment, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Moment{}, err
	}
	if r.ID == "" {
		return models.Moment{}, errors.New("missing id")
	}
	if strings.TrimSpace(r.Text) == "" {
		return models.Moment{}, errors.New("empty text")
	}
	if !weeks.Valid(r.WeekNumber) {
		return models.Moment{}, fmt.Errorf("week %d out of range", r.WeekNumber)
	}
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return models.Moment{}, fmt.Errorf("createdAt: %w", err)
	}
	return models.Moment{
		ID:         r.ID,
		Text:       r.Text,
		Title:      r.Title,
		CreatedAt:  created,
		WeekNumber: r.WeekNumber,
		Year:       r.Year,
		Photo:      r.Photo,
	}, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, storage.ErrNotExist)
}
