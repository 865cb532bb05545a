// Package weeks implements the journal's week numbering.
//
// Weeks are counted from January 1 in whole calendar days: days 1-7 are week
// 1, days 8-14 are week 2, and so on, so the last days of a year fall into
// week 53. This is deliberately not ISO-8601 week numbering.
package weeks

import "time"

const (
	MinWeek = 1
	MaxWeek = 53

	// PickerWeeks is the number of weeks offered by week pickers.
	PickerWeeks = 52
	// PickerYears is how many past years are offered besides the current one.
	PickerYears = 5
)

// CurrentWeekNumber returns the week that now falls into within its own year.
func CurrentWeekNumber(now time.Time) int {
	return (now.YearDay()-1)/7 + 1
}

// WeekDateRange returns the first and last day of week in year.
// Week numbers outside [MinWeek, MaxWeek] are not rejected; the dates simply
// roll over into neighbouring years.
func WeekDateRange(week, year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1+(week-1)*7, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 6)
}

// Valid reports whether week is a week number a moment can be filed under.
func Valid(week int) bool {
	return week >= MinWeek && week <= MaxWeek
}

// Options returns the week numbers offered by pickers, ascending.
func Options() []int {
	out := make([]int, PickerWeeks)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// YearOptions returns the current year followed by the previous PickerYears.
func YearOptions(now time.Time) []int {
	out := make([]int, 0, PickerYears+1)
	for y := now.Year(); y >= now.Year()-PickerYears; y-- {
		out = append(out, y)
	}
	return out
}
