package forecast

import (
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

// BuildDailySeries groups admission events by calendar date and returns one
// row per date in [first, last] inclusive, zero-filled for dates with no
// admissions, in chronological order. Events without a usable admission
// timestamp are skipped and reported through dropped; they never abort the
// build. An empty series after filtering is an InsufficientDataError.
func BuildDailySeries(events []models.AdmissionEvent) (series []models.DailyAggregate, dropped int, err error) {
	counts := make(map[int64]int, len(events))
	var first, last int64
	seen := false

	for _, e := range events {
		if e.AdmittedAt.IsZero() {
			dropped++
			continue
		}
		day := util.Day(e.AdmittedAt).Unix()
		counts[day]++
		if !seen {
			first, last = day, day
			seen = true
			continue
		}
		if day < first {
			first = day
		}
		if day > last {
			last = day
		}
	}
	if !seen {
		return nil, dropped, &models.InsufficientDataError{Op: "aggregate", Need: 1, Got: 0}
	}

	const daySeconds = 24 * 60 * 60
	n := int((last-first)/daySeconds) + 1
	series = make([]models.DailyAggregate, 0, n)
	for day := first; day <= last; day += daySeconds {
		row := models.DailyAggregate{Count: counts[day]}
		fillCalendar(&row, util.DayFromUnix(day))
		series = append(series, row)
	}
	return series, dropped, nil
}
