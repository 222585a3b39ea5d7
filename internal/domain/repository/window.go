package repository

import "time"

// Window bounds a historical load to [From, To]. A zero field leaves
// that side unbounded, so the zero Window selects everything.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowBetween builds a window from optional bounds.
func WindowBetween(from, to time.Time) Window {
	return Window{From: from, To: to}
}

// IsZero reports whether the window is unbounded on both sides.
func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}
