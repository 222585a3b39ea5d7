package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateDayFirst(t *testing.T) {
	got, ok := ParseDate("17/04/2017")
	if !ok || !got.Equal(time.Date(2017, 4, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate = %v, %v", got, ok)
	}
}

func TestParseDateRFC3339(t *testing.T) {
	got, ok := ParseDate("2019-03-05T08:30:00Z")
	if !ok || !got.Equal(time.Date(2019, 3, 5, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate = %v, %v", got, ok)
	}
}

func TestParseDateUnix(t *testing.T) {
	want := time.Date(2019, 3, 5, 8, 30, 0, 0, time.UTC)
	got, ok := ParseDate(strconv.FormatInt(want.Unix(), 10))
	if !ok || got.Unix() != want.Unix() {
		t.Fatalf("ParseDate = %v, %v", got, ok)
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2019, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := ParseDateDefault("not-a-date", def); !got.Equal(def) {
		t.Fatalf("fallback not applied, got %v", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2017, 4, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2017, 4, 10, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
	if got := DaysBetween(a, a); got != 1 {
		t.Fatalf("expected 1 day, got %d", got)
	}
}

func TestParseFlag(t *testing.T) {
	cases := map[string]bool{
		"1": true, "0": false, "": false, "yes": true, "EMPTY": false,
	}
	for in, want := range cases {
		if got := ParseFlag(in); got != want {
			t.Fatalf("ParseFlag(%q) = %v, want %v", in, got, want)
		}
	}
}
