// Package review renders the derived views of the journal: the year review
// and the plain-text timeline.
package review

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/weeks"
)

// Entry is one moment decorated for display.
type Entry struct {
	models.Moment
	Label     string `json:"label"`
	DateRange string `json:"dateRange"`
}

// Year is the year-review view.
type Year struct {
	Year    int     `json:"year"`
	Count   int     `json:"count"`
	Summary string  `json:"summary"`
	Entries []Entry `json:"moments"`
}

type frontMatter struct {
	Title     string   `yaml:"title"`
	Year      int      `yaml:"year"`
	Moments   int      `yaml:"moments"`
	Generated string   `yaml:"generated"`
	Tags      []string `yaml:"tags"`
}

// Decorate attaches the week label and date range to each moment.
func Decorate(items []models.Moment) []Entry {
	out := make([]Entry, len(items))
	for i, m := range items {
		out[i] = Entry{
			Moment:    m,
			Label:     weeks.Label(m.WeekNumber),
			DateRange: weeks.FormatRange(m.WeekNumber, m.Year),
		}
	}
	return out
}

// BuildYear assembles the year review from moments already ordered
// ascending by week.
func BuildYear(year int, items []models.Moment) Year {
	return Year{
		Year:    year,
		Count:   len(items),
		Summary: weeks.CountPhrase(len(items)),
		Entries: Decorate(items),
	}
}

// Markdown renders the year review with YAML front matter.
func Markdown(y Year, now time.Time) (string, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:     fmt.Sprintf("Ваш %d год", y.Year),
		Year:      y.Year,
		Moments:   y.Count,
		Generated: now.Format(time.RFC3339),
		Tags:      []string{"year-review"},
	})
	if err != nil {
		return "", fmt.Errorf("review: front matter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Ваш %d год\n\n%s\n", y.Year, y.Summary)

	for _, e := range y.Entries {
		fmt.Fprintf(&b, "\n## %s · %s\n\n", e.Label, e.DateRange)
		if e.Title != nil && *e.Title != "" {
			fmt.Fprintf(&b, "**%s**\n\n", *e.Title)
		}
		if e.HasPhoto() {
			fmt.Fprintf(&b, "![%s](%s)\n\n", e.Label, *e.Photo)
		}
		b.WriteString(strings.TrimSpace(e.Text))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Timeline renders moments one block per entry, in the order given.
func Timeline(items []models.Moment) string {
	if len(items) == 0 {
		return "Пока нет воспоминаний\n"
	}
	var b strings.Builder
	for i, e := range Decorate(items) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s • %s · %s\n", e.Year, e.Label, e.DateRange, e.ID)
		if e.Title != nil && *e.Title != "" {
			fmt.Fprintf(&b, "    %s\n", *e.Title)
		}
		for _, line := range strings.Split(strings.TrimSpace(e.Text), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		if e.HasPhoto() {
			b.WriteString("    (фото)\n")
		}
	}
	return b.String()
}
