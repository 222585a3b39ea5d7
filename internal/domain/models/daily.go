package models

import "time"

// DailyAggregate is one row per calendar date in the observed horizon: the
// admission count plus derived calendar, lag and rolling-mean fields. The
// sequence a constructor emits is dense — a date with zero admissions still
// gets a row — and chronologically ordered.
//
// Weekday convention: 0=Monday .. 6=Sunday. Season codes: 0=Winter (Dec-Feb),
// 1=Spring (Mar-May), 2=Summer (Jun-Aug), 3=Fall (Sep-Nov).
type DailyAggregate struct {
	Date       time.Time
	Count      int
	Year       int
	Month      int
	Day        int
	DayOfWeek  int
	DayOfYear  int
	WeekOfYear int
	IsWeekend  bool
	Season     int

	// Lags holds the count observed k days earlier, keyed by offset; a key
	// is absent while the series is too short to look that far back.
	Lags map[int]float64
	// Rolls holds the trailing mean over a window, keyed by window length;
	// a key is absent until the window is full.
	Rolls map[int]float64
}

// Lag returns the lagged count at the given offset if it is defined.
func (d *DailyAggregate) Lag(offset int) (float64, bool) {
	v, ok := d.Lags[offset]
	return v, ok
}

// Roll returns the trailing rolling mean over the given window if defined.
func (d *DailyAggregate) Roll(window int) (float64, bool) {
	v, ok := d.Rolls[window]
	return v, ok
}
