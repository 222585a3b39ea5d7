package forecast

import (
	"context"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domsvc "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
)

// BusyAnalyzer classifies days against a percentile threshold of the
// historical daily counts. It never trains a model: the optional future
// points come from the caller and are scored with the same threshold.
type BusyAnalyzer struct{}

func NewBusyAnalyzer() *BusyAnalyzer { return &BusyAnalyzer{} }

func (a *BusyAnalyzer) Analyze(ctx context.Context, daily []models.DailyAggregate, pct float64, future []models.ForecastPoint) (*models.BusyPeriodReport, error) {
	if pct <= 0 || pct > 100 {
		return nil, &models.InvalidParameterError{Param: "percentile", Value: pct, Reason: "must be in (0, 100]"}
	}
	if len(daily) == 0 {
		return nil, &models.InsufficientDataError{Op: "busy_periods", Need: 1, Got: 0}
	}

	counts := make([]float64, len(daily))
	for i, row := range daily {
		counts[i] = float64(row.Count)
	}
	threshold := percentile(counts, pct)

	report := &models.BusyPeriodReport{
		ThresholdPercentile: pct,
		BusyThreshold:       threshold,
		BusyMonths:          map[int]int{},
		BusyDaysOfWeek:      map[int]int{},
		BusySeasons:         map[int]int{},
	}

	busySum := 0.0
	for _, row := range daily {
		if float64(row.Count) < threshold {
			continue
		}
		report.BusyDayCount++
		busySum += float64(row.Count)
		report.BusyMonths[row.Month]++
		report.BusyDaysOfWeek[row.DayOfWeek]++
		report.BusySeasons[row.Season]++
	}
	report.BusyDayPercentage = float64(report.BusyDayCount) / float64(len(daily)) * 100
	if report.BusyDayCount > 0 {
		report.AverageBusyDayAdmissions = busySum / float64(report.BusyDayCount)
	}

	if future != nil {
		busyFuture := make([]models.ForecastPoint, 0, len(future))
		for _, p := range future {
			if float64(p.PredictedAdmissions) >= threshold {
				busyFuture = append(busyFuture, p)
			}
		}
		n := len(busyFuture)
		report.FutureBusyPeriods = busyFuture
		report.PredictedBusyDays = &n
	}
	return report, nil
}

var _ domsvc.BusyPeriodAnalyzer = (*BusyAnalyzer)(nil)
