package forecast

import (
	"testing"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

func rampSeries(n int) []models.DailyAggregate {
	rows := make([]models.DailyAggregate, n)
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		fillCalendar(&rows[i], base.AddDate(0, 0, i))
		rows[i].Count = i + 1
	}
	return rows
}

func TestAttachFeaturesLags(t *testing.T) {
	rows := rampSeries(40)
	attachFeatures(rows)

	if _, ok := rows[0].Lag(1); ok {
		t.Fatalf("row 0 must not have lag 1")
	}
	if v, ok := rows[5].Lag(3); !ok || v != 3 {
		t.Fatalf("row 5 lag 3 = %v (%v), want 3", v, ok)
	}
	if v, ok := rows[30].Lag(30); !ok || v != 1 {
		t.Fatalf("row 30 lag 30 = %v (%v), want 1", v, ok)
	}
	if _, ok := rows[29].Lag(30); ok {
		t.Fatalf("row 29 must not have lag 30")
	}
}

func TestAttachFeaturesRollingMeans(t *testing.T) {
	rows := rampSeries(40)
	attachFeatures(rows)

	if _, ok := rows[1].Roll(3); ok {
		t.Fatalf("row 1 must not have a 3-day rolling mean")
	}
	// trailing window includes the current row
	if v, ok := rows[2].Roll(3); !ok || !almostEqual(v, 2, 1e-9) {
		t.Fatalf("row 2 roll 3 = %v (%v), want 2", v, ok)
	}
	if v, ok := rows[29].Roll(30); !ok || !almostEqual(v, 15.5, 1e-9) {
		t.Fatalf("row 29 roll 30 = %v (%v), want 15.5", v, ok)
	}
	if v, ok := rows[39].Roll(7); !ok || !almostEqual(v, 37, 1e-9) {
		t.Fatalf("row 39 roll 7 = %v (%v), want 37", v, ok)
	}
}

func TestFeatureCompletenessGate(t *testing.T) {
	rows := rampSeries(40)
	attachFeatures(rows)

	if featureComplete(rows[29]) {
		t.Fatalf("row 29 must be incomplete (lag 30 undefined)")
	}
	if !featureComplete(rows[30]) {
		t.Fatalf("row 30 must be complete")
	}

	x, y := designMatrix(rows)
	if len(x) != 10 || len(y) != 10 {
		t.Fatalf("design matrix rows = %d, want 10", len(x))
	}
	if y[0] != 31 {
		t.Fatalf("first complete target = %v, want 31", y[0])
	}
}

func TestVectorOrder(t *testing.T) {
	row := models.DailyAggregate{
		Month: 6, DayOfWeek: 2, DayOfYear: 152, WeekOfYear: 22,
		IsWeekend: false, Season: 2,
		Lags:  map[int]float64{1: 11, 3: 13, 7: 17, 14: 1, 30: 1},
		Rolls: map[int]float64{3: 23, 7: 27, 14: 1, 30: 1},
	}
	got := vector(row)
	want := []float64{6, 2, 152, 22, 0, 2, 11, 13, 17, 23, 27}
	if len(got) != len(want) || len(got) != len(FeatureNames) {
		t.Fatalf("vector width = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vector[%d] (%s) = %v, want %v", i, FeatureNames[i], got[i], want[i])
		}
	}
}

func TestFutureVectorSubstitutesTrailingMean(t *testing.T) {
	sat := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) // a Saturday
	got := futureVector(sat, 9.5)
	want := []float64{6, 5, 153, 22, 1, 2, 9.5, 9.5, 9.5, 9.5, 9.5}
	if len(got) != len(want) {
		t.Fatalf("vector width = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("futureVector[%d] (%s) = %v, want %v", i, FeatureNames[i], got[i], want[i])
		}
	}
}

func TestTrailingMeanCount(t *testing.T) {
	rows := rampSeries(40) // counts 1..40
	got := trailingMeanCount(rows, 30)
	if !almostEqual(got, 25.5, 1e-9) { // mean of 11..40
		t.Fatalf("trailing mean = %v, want 25.5", got)
	}

	short := rampSeries(4) // counts 1..4
	if got := trailingMeanCount(short, 30); !almostEqual(got, 2.5, 1e-9) {
		t.Fatalf("short trailing mean = %v, want 2.5", got)
	}
}
