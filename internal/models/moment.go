// Package models defines the domain types for fiftytwo.
package models

import "time"

// Moment is one journal entry filed under a week of a year.
type Moment struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Title      *string   `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	WeekNumber int       `json:"weekNumber"`
	Year       int       `json:"year"`
	Photo      *string   `json:"photo,omitempty"` // data URL
}

// HasPhoto reports whether an inline photo is attached.
func (m Moment) HasPhoto() bool {
	return m.Photo != nil && *m.Photo != ""
}

// Clone returns a deep copy so callers never alias the store's records.
func (m Moment) Clone() Moment {
	out := m
	if m.Title != nil {
		t := *m.Title
		out.Title = &t
	}
	if m.Photo != nil {
		p := *m.Photo
		out.Photo = &p
	}
	return out
}

// MomentInput carries the user-editable fields of a Moment.
type MomentInput struct {
	Text       string  `json:"text"`
	Title      *string `json:"title,omitempty"`
	WeekNumber int     `json:"weekNumber"`
	Year       int     `json:"year"`
	Photo      *string `json:"photo,omitempty"`
}

// Theme is the page color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Preferences holds the appearance settings.
type Preferences struct {
	Theme           Theme  `json:"theme"`
	AccentColor     string `json:"accentColor"`
	BackgroundColor string `json:"backgroundColor"`
}
