// Package dates normalizes calendar days. Rental periods are whole UTC days with inclusive bounds.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar days.
const Layout = "2006-01-02"

// Day returns midnight UTC of t's calendar day in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayPtr normalizes an optional day.
func DayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Day(*t)
	return &d
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Parse reads a YYYY-MM-DD day.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", value, Layout)
	}
	return t, nil
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return Day(t).Format(Layout)
}
