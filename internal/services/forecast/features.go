package forecast

import (
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

// Lag offsets and trailing windows attached to every daily row. Only a
// subset feeds the models (see FeatureNames); the rest gate feature
// completeness so training never sees a partially warmed-up row.
var (
	lagOffsets  = []int{1, 3, 7, 14, 30}
	rollWindows = []int{3, 7, 14, 30}

	modelLags  = []int{1, 3, 7}
	modelRolls = []int{3, 7}
)

// FeatureNames is the model input order, identical for training rows and
// future-date rows. Importance reports key off these names.
var FeatureNames = []string{
	"month",
	"day_of_week",
	"day_of_year",
	"week_of_year",
	"is_weekend",
	"season",
	"admission_count_lag_1",
	"admission_count_lag_3",
	"admission_count_lag_7",
	"admission_count_rolling_3",
	"admission_count_rolling_7",
}

// weekdayIndex maps time.Weekday (Sunday=0) onto the Monday=0..Sunday=6
// convention used throughout the reports.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// seasonOf codes months into winter 0 (Dec-Feb), spring 1 (Mar-May),
// summer 2 (Jun-Aug), fall 3 (Sep-Nov).
func seasonOf(month int) int {
	switch month {
	case 12, 1, 2:
		return 0
	case 3, 4, 5:
		return 1
	case 6, 7, 8:
		return 2
	default:
		return 3
	}
}

func fillCalendar(row *models.DailyAggregate, date time.Time) {
	row.Date = date
	y, m, d := date.Date()
	row.Year = y
	row.Month = int(m)
	row.Day = d
	row.DayOfWeek = weekdayIndex(date)
	row.DayOfYear = date.YearDay()
	_, row.WeekOfYear = date.ISOWeek()
	row.IsWeekend = row.DayOfWeek >= 5
	row.Season = seasonOf(int(m))
}

// attachFeatures computes lag and trailing rolling-mean fields in place.
// Lag k at row i is the count k rows earlier (undefined for i < k); the
// rolling mean over window w covers rows [i-w+1, i] inclusive of the
// current row and is undefined until the window is full.
func attachFeatures(series []models.DailyAggregate) {
	counts := make([]float64, len(series))
	for i := range series {
		counts[i] = float64(series[i].Count)
	}

	sums := make([]float64, len(rollWindows))
	for i := range series {
		row := &series[i]
		row.Lags = make(map[int]float64, len(lagOffsets))
		for _, k := range lagOffsets {
			if i-k >= 0 {
				row.Lags[k] = counts[i-k]
			}
		}
		row.Rolls = make(map[int]float64, len(rollWindows))
		for wi, w := range rollWindows {
			sums[wi] += counts[i]
			if i >= w {
				sums[wi] -= counts[i-w]
			}
			if i >= w-1 {
				row.Rolls[w] = sums[wi] / float64(w)
			}
		}
	}
}

// featureComplete reports whether every lag and rolling field is defined.
func featureComplete(row models.DailyAggregate) bool {
	for _, k := range lagOffsets {
		if _, ok := row.Lag(k); !ok {
			return false
		}
	}
	for _, w := range rollWindows {
		if _, ok := row.Roll(w); !ok {
			return false
		}
	}
	return true
}

// vector lays out a feature-complete row in FeatureNames order.
func vector(row models.DailyAggregate) []float64 {
	x := make([]float64, 0, len(FeatureNames))
	x = append(x,
		float64(row.Month),
		float64(row.DayOfWeek),
		float64(row.DayOfYear),
		float64(row.WeekOfYear),
		boolToFloat(row.IsWeekend),
		float64(row.Season),
	)
	for _, k := range modelLags {
		v, _ := row.Lag(k)
		x = append(x, v)
	}
	for _, w := range modelRolls {
		v, _ := row.Roll(w)
		x = append(x, v)
	}
	return x
}

// futureVector builds the input for an unobserved date: calendar fields come
// from the date itself, every lag/rolling slot is substituted with the mean
// of the trailing observed counts. Predictions are never fed back in.
func futureVector(date time.Time, recent float64) []float64 {
	x := make([]float64, 0, len(FeatureNames))
	_, week := date.ISOWeek()
	wd := weekdayIndex(date)
	x = append(x,
		float64(int(date.Month())),
		float64(wd),
		float64(date.YearDay()),
		float64(week),
		boolToFloat(wd >= 5),
		float64(seasonOf(int(date.Month()))),
	)
	for range modelLags {
		x = append(x, recent)
	}
	for range modelRolls {
		x = append(x, recent)
	}
	return x
}

// designMatrix extracts the feature-complete rows as (X, y).
func designMatrix(series []models.DailyAggregate) (x [][]float64, y []float64) {
	for _, row := range series {
		if !featureComplete(row) {
			continue
		}
		x = append(x, vector(row))
		y = append(y, float64(row.Count))
	}
	return x, y
}

// trailingMeanCount averages the last window observed counts (fewer when the
// series is shorter than the window).
func trailingMeanCount(series []models.DailyAggregate, window int) float64 {
	if len(series) == 0 {
		return 0
	}
	start := len(series) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, row := range series[start:] {
		sum += float64(row.Count)
	}
	return sum / float64(len(series)-start)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
