package forecast

import (
	"context"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domsvc "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
)

// trailingWindow is the number of trailing observed days whose mean stands in
// for unobservable lag/rolling inputs on future dates.
const trailingWindow = 30

const methodNote = "lag and rolling inputs for future dates are held at the trailing 30-day mean of observed counts instead of recursively fed predictions; per-day calendar effects are isolated and uncertainty growth over the horizon is understated"

// Engine runs the full forecasting pipeline over a dense daily series:
// feature attachment, candidate training and selection, future projection.
type Engine struct {
	trainer *Trainer
	log     *logger.Logger
}

func NewEngine(cfg Config, log *logger.Logger) *Engine {
	return &Engine{trainer: NewTrainer(cfg, log), log: log}
}

func (e *Engine) Forecast(ctx context.Context, daily []models.DailyAggregate, horizonDays int) (*models.ForecastResult, error) {
	if horizonDays <= 0 {
		return nil, &models.InvalidParameterError{Param: "horizon", Value: horizonDays, Reason: "must be a positive number of days"}
	}

	// Work on a copy so feature maps never leak into the caller's series.
	rows := make([]models.DailyAggregate, len(daily))
	copy(rows, daily)
	attachFeatures(rows)

	started := time.Now()
	tr, err := e.trainer.Train(ctx, rows)
	if err != nil {
		return nil, err
	}
	e.log.Info("model training complete",
		logger.String("best_model", string(tr.Best.Family())),
		logger.Int("candidates", len(tr.Metrics)),
		logger.Int("excluded", len(tr.Excluded)),
		logger.Duration("took", time.Since(started)))

	return &models.ForecastResult{
		BestModel:         string(tr.Best.Family()),
		HorizonDays:       horizonDays,
		ModelMetrics:      tr.Metrics,
		FuturePredictions: project(tr.Best, rows, horizonDays),
		FeatureImportance: sortedImportances(tr.Best),
		MethodNote:        methodNote,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// project scores one point per day after the last observed date. Dates come
// out strictly increasing with no gaps; counts are clamped to non-negative
// integers.
func project(m Model, series []models.DailyAggregate, horizonDays int) []models.ForecastPoint {
	recent := trailingMeanCount(series, trailingWindow)
	last := series[len(series)-1].Date

	points := make([]models.ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		date := last.AddDate(0, 0, i)
		raw := m.Predict(futureVector(date, recent))
		points = append(points, models.ForecastPoint{
			Date:                models.Date(date),
			PredictedAdmissions: clampCount(raw),
		})
	}
	return points
}

var _ domsvc.Forecaster = (*Engine)(nil)
