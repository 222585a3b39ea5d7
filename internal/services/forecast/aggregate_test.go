package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

func eventOn(t time.Time) models.AdmissionEvent {
	return models.AdmissionEvent{AdmittedAt: t}
}

func TestBuildDailySeriesDenseAndZeroFilled(t *testing.T) {
	mon := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) // a Monday
	events := []models.AdmissionEvent{
		eventOn(mon),
		eventOn(mon.Add(4 * time.Hour)),
		eventOn(mon.AddDate(0, 0, 2)), // gap on Jan 2
	}

	series, dropped, err := BuildDailySeries(events)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(series))
	}
	wantCounts := []int{2, 0, 1}
	for i, want := range wantCounts {
		if series[i].Count != want {
			t.Errorf("row %d count = %d, want %d", i, series[i].Count, want)
		}
	}
	for i := 1; i < len(series); i++ {
		if got := series[i].Date.Sub(series[i-1].Date); got != 24*time.Hour {
			t.Fatalf("gap between rows %d and %d: %v", i-1, i, got)
		}
	}

	first := series[0]
	if first.Year != 2024 || first.Month != 1 || first.Day != 1 {
		t.Fatalf("calendar = %d-%d-%d", first.Year, first.Month, first.Day)
	}
	if first.DayOfWeek != 0 || first.IsWeekend {
		t.Fatalf("Jan 1 2024 should be Monday: weekday=%d weekend=%v", first.DayOfWeek, first.IsWeekend)
	}
	if first.DayOfYear != 1 || first.WeekOfYear != 1 {
		t.Fatalf("doy/week = %d/%d", first.DayOfYear, first.WeekOfYear)
	}
	if first.Season != 0 {
		t.Fatalf("January season = %d, want 0", first.Season)
	}
}

func TestBuildDailySeriesCountsDroppedTimestamps(t *testing.T) {
	events := []models.AdmissionEvent{
		{}, // unusable timestamp
		eventOn(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)),
		{},
	}
	series, dropped, err := BuildDailySeries(events)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if len(series) != 1 || series[0].Count != 1 {
		t.Fatalf("series = %+v", series)
	}
}

func TestBuildDailySeriesEmptyIsInsufficient(t *testing.T) {
	_, _, err := BuildDailySeries(nil)
	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}

	_, dropped, err := BuildDailySeries([]models.AdmissionEvent{{}, {}})
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError after filtering, got %v", err)
	}
	if dropped != 2 {
		t.Fatalf("dropped = %d", dropped)
	}
}

func TestBuildDailySeriesSpanProperty(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	events := []models.AdmissionEvent{
		eventOn(base.AddDate(0, 0, 17)),
		eventOn(base),
		eventOn(base.AddDate(0, 0, 5)),
	}
	series, _, err := BuildDailySeries(events)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(series) != 18 { // inclusive span regardless of input order
		t.Fatalf("len = %d, want 18", len(series))
	}
}

func TestWeekendAndSeasonCodes(t *testing.T) {
	sat := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	series, _, err := BuildDailySeries([]models.AdmissionEvent{eventOn(sat)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if series[0].DayOfWeek != 5 || !series[0].IsWeekend {
		t.Fatalf("Saturday: weekday=%d weekend=%v", series[0].DayOfWeek, series[0].IsWeekend)
	}

	seasons := map[int]int{1: 0, 2: 0, 3: 1, 5: 1, 6: 2, 8: 2, 9: 3, 11: 3, 12: 0}
	for month, want := range seasons {
		if got := seasonOf(month); got != want {
			t.Errorf("seasonOf(%d) = %d, want %d", month, got, want)
		}
	}
}
