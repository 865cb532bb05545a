package weeks

import (
	"fmt"
	"time"
)

// Month names in the display locale (Russian), genitive case as used after a
// day number, plus the abbreviated forms.
var (
	monthsLong = [...]string{
		"января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря",
	}
	monthsShort = [...]string{
		"янв.", "февр.", "мар.", "апр.", "мая", "июн.",
		"июл.", "авг.", "сент.", "окт.", "нояб.", "дек.",
	}
)

// FormatShort renders a day as "7 янв.".
func FormatShort(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthsShort[t.Month()-1])
}

// FormatLong renders a date as "7 января 2024 г.".
func FormatLong(t time.Time) string {
	return fmt.Sprintf("%d %s %d г.", t.Day(), monthsLong[t.Month()-1], t.Year())
}

// FormatRange renders the date range of a week, e.g. "1 янв. — 7 янв.".
func FormatRange(week, year int) string {
	start, end := WeekDateRange(week, year)
	return FormatShort(start) + " — " + FormatShort(end)
}

// Label renders "Неделя 12".
func Label(week int) string {
	return fmt.Sprintf("Неделя %d", week)
}

// CountPhrase renders the number of saved moments for the year review,
// e.g. "Сохранено 3 момента". Zero yields the empty-review phrase.
func CountPhrase(n int) string {
	if n == 0 {
		return "Пока нет сохранённых моментов"
	}
	return fmt.Sprintf("Сохранено %d %s", n, pluralMoments(n))
}

// pluralMoments picks the noun form by the Russian plural rules:
// one (1, 21, 31...), few (2-4, 22-24...), many (everything else, incl. 11-14).
func pluralMoments(n int) string {
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return "момент"
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return "момента"
	default:
		return "моментов"
	}
}
