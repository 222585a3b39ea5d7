package forecast

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domsvc "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
)

// CapacityAnalyzer derives staffing-oriented statistics from the daily
// series. Pure aggregation: it stays available when model training is not.
type CapacityAnalyzer struct{}

func NewCapacityAnalyzer() *CapacityAnalyzer { return &CapacityAnalyzer{} }

func (a *CapacityAnalyzer) Analyze(ctx context.Context, daily []models.DailyAggregate) (*models.CapacityReport, error) {
	if len(daily) == 0 {
		return nil, &models.InsufficientDataError{Op: "capacity", Need: 1, Got: 0}
	}

	counts := make([]float64, len(daily))
	for i, row := range daily {
		counts[i] = float64(row.Count)
	}

	return &models.CapacityReport{
		DailyAdmissionStats: describe(counts),
		PeakRequirements: models.PeakRequirements{
			MaxDailyAdmissions: roundToInt(floats.Max(counts)),
			Percentile95:       roundToInt(percentile(counts, 95)),
			Percentile90:       roundToInt(percentile(counts, 90)),
			Percentile75:       roundToInt(percentile(counts, 75)),
		},
		MonthlyPatterns:   groupPattern(daily, func(r models.DailyAggregate) int { return r.Month }),
		DayOfWeekPatterns: groupPattern(daily, func(r models.DailyAggregate) int { return r.DayOfWeek }),
	}, nil
}

// groupPattern computes mean/max/std of the daily count per group key.
// Singleton groups report a std of 0 so reports stay JSON-serializable.
func groupPattern(daily []models.DailyAggregate, key func(models.DailyAggregate) int) models.GroupPattern {
	groups := map[int][]float64{}
	for _, row := range daily {
		k := key(row)
		groups[k] = append(groups[k], float64(row.Count))
	}

	p := models.GroupPattern{
		Mean: make(map[int]float64, len(groups)),
		Max:  make(map[int]float64, len(groups)),
		Std:  make(map[int]float64, len(groups)),
	}
	for k, vals := range groups {
		p.Mean[k] = meanOf(vals)
		p.Max[k] = floats.Max(vals)
		p.Std[k] = stddevOf(vals)
	}
	return p
}

var _ domsvc.CapacityAnalyzer = (*CapacityAnalyzer)(nil)
