// Package timeutil holds the calendar-day arithmetic shared by filtering and
// trend bucketing. A "day" is always midnight in an explicit location.
package timeutil

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves a day boundary by n calendar days. It stays on midnight
// across DST changes, unlike t.Add(24*time.Hour).
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

// ParseDay parses a YYYY-MM-DD string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	const op = "lib.timeutil.ParseDay"

	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// WeekStart returns the Monday that opens the ISO week containing day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return AddDays(StartOfDay(day, day.Location()), -offset)
}

// DaysBetween counts calendar days from a to b, both day boundaries.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	return int(ub.Sub(ua).Hours() / 24)
}
