package forecast

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
)

// Config bounds one training run. Zero values fall back to the operational
// defaults below.
type Config struct {
	TestFraction  float64 // trailing hold-out share, default 0.2
	Estimators    int     // trees/stages per ensemble, default 100
	LearningRate  float64 // boosting shrinkage, default 0.1
	Seed          int64   // rng seed for stochastic candidates, default 42
	MinRows       int     // feature-complete rows required, default 30
	ConcurrentFit bool    // fit candidates in parallel
}

const (
	defaultTestFraction = 0.2
	defaultEstimators   = 100
	defaultLearningRate = 0.1
	defaultSeed         = 42
	defaultMinRows      = 30
)

func (c Config) withDefaults() Config {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = defaultTestFraction
	}
	if c.Estimators <= 0 {
		c.Estimators = defaultEstimators
	}
	if c.LearningRate <= 0 {
		c.LearningRate = defaultLearningRate
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.MinRows <= 0 {
		c.MinRows = defaultMinRows
	}
	return c
}

// Trainer fits the candidate families on a chronological split and selects
// the best of them by hold-out R-squared.
type Trainer struct {
	cfg Config
	log *logger.Logger
}

func NewTrainer(cfg Config, log *logger.Logger) *Trainer {
	return &Trainer{cfg: cfg.withDefaults(), log: log}
}

// TrainingResult is the outcome of one run: the selected model, the metric
// table over every candidate that fitted, and the families excluded by fit
// errors.
type TrainingResult struct {
	Best     Model
	Metrics  []models.CandidateMetrics
	Excluded []string
}

type fitOutcome struct {
	model Model
	err   error
}

// Train requires feature-complete rows and holds out the chronological tail
// (no shuffling) for evaluation. A candidate that fails to fit is excluded
// and logged; only all candidates failing escalates as a ModelFitError.
func (t *Trainer) Train(ctx context.Context, series []models.DailyAggregate) (*TrainingResult, error) {
	x, y := designMatrix(series)
	if len(x) < t.cfg.MinRows {
		return nil, &models.InsufficientDataError{Op: "train", Need: t.cfg.MinRows, Got: len(x)}
	}

	nTest := int(math.Ceil(float64(len(x)) * t.cfg.TestFraction))
	if nTest < 1 {
		nTest = 1
	}
	split := len(x) - nTest
	trainX, testX := x[:split], x[split:]
	trainY, testY := y[:split], y[split:]

	type candidate struct {
		family Family
		fit    func() (Model, error)
	}
	candidates := []candidate{
		{FamilyRandomForest, func() (Model, error) {
			return fitRandomForest(trainX, trainY, t.cfg.Estimators, t.cfg.Seed)
		}},
		{FamilyGradientBoosting, func() (Model, error) {
			return fitGradientBoosting(trainX, trainY, t.cfg.Estimators, t.cfg.LearningRate, t.cfg.Seed)
		}},
		{FamilyLinear, func() (Model, error) {
			return fitLinear(trainX, trainY)
		}},
		{FamilyPoissonGLM, func() (Model, error) {
			return fitPoissonGLM(trainX, trainY)
		}},
	}

	outcomes := make([]fitOutcome, len(candidates))
	if t.cfg.ConcurrentFit {
		var wg sync.WaitGroup
		for i, c := range candidates {
			wg.Add(1)
			go func(i int, fit func() (Model, error)) {
				defer wg.Done()
				// cancellation point before each fit starts
				if err := ctx.Err(); err != nil {
					outcomes[i] = fitOutcome{err: err}
					return
				}
				m, err := fit()
				outcomes[i] = fitOutcome{model: m, err: err}
			}(i, c.fit)
		}
		wg.Wait()
	} else {
		for i, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m, err := c.fit()
			outcomes[i] = fitOutcome{model: m, err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &TrainingResult{}
	var fitErrs []error
	bestR2 := math.Inf(-1)
	bestMAE := math.Inf(1)
	for i, c := range candidates {
		out := outcomes[i]
		if out.err != nil {
			t.log.Warn("model candidate excluded",
				logger.String("family", string(c.family)),
				logger.Error(out.err))
			res.Excluded = append(res.Excluded, string(c.family))
			fitErrs = append(fitErrs, &models.ModelFitError{Family: string(c.family), Err: out.err})
			continue
		}
		mae, mse, r2 := evaluate(out.model, testX, testY)
		res.Metrics = append(res.Metrics, models.CandidateMetrics{
			Model: string(c.family), MAE: mae, MSE: mse, R2: r2,
		})
		// highest R-squared wins, ties go to the lower MAE
		if r2 > bestR2 || (r2 == bestR2 && mae < bestMAE) {
			res.Best = out.model
			bestR2, bestMAE = r2, mae
		}
	}
	if res.Best == nil {
		return nil, &models.ModelFitError{Family: "all", Err: errors.Join(fitErrs...)}
	}
	return res, nil
}

// evaluate computes hold-out MAE, MSE and R-squared. A constant hold-out
// target makes R-squared 1 for an exact fit and 0 otherwise.
func evaluate(m Model, x [][]float64, y []float64) (mae, mse, r2 float64) {
	n := float64(len(y))
	meanY := meanOf(y)
	var absSum, sqSum, ssTot float64
	for i := range y {
		d := m.Predict(x[i]) - y[i]
		absSum += math.Abs(d)
		sqSum += d * d
		td := y[i] - meanY
		ssTot += td * td
	}
	mae = absSum / n
	mse = sqSum / n
	switch {
	case ssTot == 0 && sqSum == 0:
		r2 = 1
	case ssTot == 0:
		r2 = 0
	default:
		r2 = 1 - sqSum/ssTot
	}
	return mae, mse, r2
}

// sortedImportances flattens a model's importance map, highest first; ties
// break on the feature name for stable output.
func sortedImportances(m Model) []models.FeatureImportance {
	imp := m.Importances()
	out := make([]models.FeatureImportance, 0, len(imp))
	for f, v := range imp {
		out = append(out, models.FeatureImportance{Feature: f, Importance: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}
