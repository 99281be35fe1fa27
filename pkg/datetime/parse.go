// Package datetime provides date and time utility functions.
//
// Month arithmetic here never relies on time.AddDate overflow: a day that does
// not exist in the target month is clamped to that month's last day.
package datetime

import (
	"time"

	"github.com/iwvelando/vehicle-finance/pkg/constants"
)

const (
	// DateLayout is the calendar date format used for input and output.
	DateLayout = constants.DateLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthDay returns midnight of the given day in the month that lies months
// after the month of start. A day past the end of that month is clamped to
// its last day.
func MonthDay(start time.Time, months, day int) time.Time {
	// Normalise on day 1 so the month offset itself can never overflow.
	first := time.Date(start.Year(), start.Month()+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, start.Location())
}

// YearMonth encodes the calendar month of t as year*100+month, e.g. 202603.
func YearMonth(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// MonthsBetween returns the number of calendar month boundaries crossed from
// start to end, ignoring the day of month. It is negative when end is in an
// earlier month.
func MonthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
