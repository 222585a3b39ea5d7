package util

import (
	"strconv"
	"time"
)

// Admission exports use day-first dates; ISO timestamps show up in API
// payloads and Kafka messages.
var dateLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate tries day-first, ISO and unix-second formats. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns default if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// Day truncates a timestamp to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayFromUnix converts unix seconds back to a UTC timestamp. Callers pass
// values produced by Day(...).Unix(), so the result is already a midnight.
func DayFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// DaysBetween counts whole days from a to b inclusive of both endpoints.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a))/(24*time.Hour)) + 1
}
