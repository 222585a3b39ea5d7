package service

import (
	"context"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

// Forecaster trains candidate models on the daily series and projects
// admission counts beyond the last observed day.
type Forecaster interface {
	Forecast(ctx context.Context, daily []models.DailyAggregate, horizonDays int) (*models.ForecastResult, error)
}

// BusyPeriodAnalyzer classifies historically busy days against a percentile
// threshold; future points, when provided, are classified with the same threshold.
type BusyPeriodAnalyzer interface {
	Analyze(ctx context.Context, daily []models.DailyAggregate, percentile float64, future []models.ForecastPoint) (*models.BusyPeriodReport, error)
}

// CapacityAnalyzer summarizes observed demand for staffing and bed planning.
type CapacityAnalyzer interface {
	Analyze(ctx context.Context, daily []models.DailyAggregate) (*models.CapacityReport, error)
}

// CohortAnalyzer summarizes patient-level demographics, outcomes and risk factors.
type CohortAnalyzer interface {
	Summarize(ctx context.Context, batch models.AdmissionBatch) (*models.CohortSummary, error)
}
