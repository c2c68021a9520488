package core

import (
	"fmt"
	"strconv"
	"time"
)

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MonthLabels returns the canonical month-of-year labels, January first.
func MonthLabels() []string {
	out := make([]string, len(monthLabels))
	copy(out, monthLabels[:])
	return out
}

// MonthLabel returns the abbreviated English label for m.
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLabels[m-1]
}

// MonthIndex returns the 1-based calendar position of a month label, or 0.
func MonthIndex(label string) int {
	for i, l := range monthLabels {
		if l == label {
			return i + 1
		}
	}
	return 0
}

// WeekdayLabels returns weekday names Monday first.
func WeekdayLabels() []string {
	out := make([]string, len(weekdayOrder))
	copy(out, weekdayOrder)
	return out
}

// QuarterOf returns the calendar quarter of m.
func QuarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// FormatMonthKey renders a "YYYY-MM" key.
func FormatMonthKey(year int, m time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(m))
}

// ParseMonthKey parses a "YYYY-MM" key.
func ParseMonthKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return t.Year(), t.Month(), nil
}

// MonthKeyOrdinal maps a month key onto a monotonically increasing integer
// (year*12 + month). Unparseable keys sort last.
func MonthKeyOrdinal(key string) int {
	y, m, err := ParseMonthKey(key)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return y*12 + int(m) - 1
}

// DayOf truncates t to its calendar day, keeping the wall-clock date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a "YYYY-MM-DD" calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseYear parses a four-digit year.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}
