package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	domsvc "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
	icache "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/cache"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/metrics"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/ratelimit"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/services/forecast"
	pkgcache "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/cache"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

// AdmissionAnalyzer joins the admission store with the forecasting and
// cohort services. Every operation loads fresh data and then reuses cached
// reports keyed by a fingerprint of what was loaded, so a changed dataset
// invalidates its own cache entries.
type AdmissionAnalyzer struct {
	store      domrepo.AdmissionStore
	forecaster domsvc.Forecaster
	busy       domsvc.BusyPeriodAnalyzer
	capacity   domsvc.CapacityAnalyzer
	cohort     domsvc.CohortAnalyzer

	cache             *icache.ReportCache
	slots             *ratelimit.Slots
	rec               domrepo.Metrics
	l                 *applogger.Logger
	backend           string
	busyHorizon       int
	defaultHorizon    int
	defaultPercentile float64
}

func NewAdmissionAnalyzer(
	store domrepo.AdmissionStore,
	forecaster domsvc.Forecaster,
	busy domsvc.BusyPeriodAnalyzer,
	capacity domsvc.CapacityAnalyzer,
	cohort domsvc.CohortAnalyzer,
) *AdmissionAnalyzer {
	return &AdmissionAnalyzer{
		store:             store,
		forecaster:        forecaster,
		busy:              busy,
		capacity:          capacity,
		cohort:            cohort,
		slots:             ratelimit.NewSlots(2),
		backend:           "csv",
		busyHorizon:       90,
		defaultHorizon:    30,
		defaultPercentile: 75,
	}
}

// SetCache injects the report cache.
func (a *AdmissionAnalyzer) SetCache(c *icache.ReportCache) { a.cache = c }

// SetLogger injects a structured logger.
func (a *AdmissionAnalyzer) SetLogger(l *applogger.Logger) { a.l = l }

// SetRecorder injects the operational metrics recorder.
func (a *AdmissionAnalyzer) SetRecorder(rec domrepo.Metrics) { a.rec = rec }

// SetSlots overrides the training concurrency limiter.
func (a *AdmissionAnalyzer) SetSlots(s *ratelimit.Slots) { a.slots = s }

// SetBackend labels metrics with the configured data backend.
func (a *AdmissionAnalyzer) SetBackend(name string) {
	if name != "" {
		a.backend = name
	}
}

// SetDefaults overrides the horizon and percentile applied when a request
// leaves them unset.
func (a *AdmissionAnalyzer) SetDefaults(horizonDays int, percentile float64) {
	if horizonDays > 0 {
		a.defaultHorizon = horizonDays
	}
	if percentile > 0 && percentile <= 100 {
		a.defaultPercentile = percentile
	}
}

// SetBusyHorizon overrides the forecast horizon folded into busy-period reports.
func (a *AdmissionAnalyzer) SetBusyHorizon(days int) {
	if days > 0 {
		a.busyHorizon = days
	}
}

type ForecastParams struct {
	Horizon int
	From    string
	To      string
}

func (a *AdmissionAnalyzer) Forecast(ctx context.Context, p ForecastParams) (*models.ForecastResult, error) {
	if p.Horizon == 0 {
		p.Horizon = a.defaultHorizon
	}
	ds, err := a.loadSeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	key := icache.Key("forecast", ds.series, p.Horizon)
	if hit, ok := icache.Lookup[models.ForecastResult](ctx, a.cache, key); ok {
		metrics.ReportCacheLookups.WithLabelValues("forecast", "hit").Inc()
		return hit, nil
	}
	metrics.ReportCacheLookups.WithLabelValues("forecast", "miss").Inc()

	res, err := a.train(ctx, ds.daily, p.Horizon)
	if err != nil {
		return nil, err
	}
	a.persist(ctx, key, res)
	return res, nil
}

type BusyPeriodsParams struct {
	Percentile   float64
	WithForecast bool
	From         string
	To           string
}

func (a *AdmissionAnalyzer) BusyPeriods(ctx context.Context, p BusyPeriodsParams) (*models.BusyPeriodReport, error) {
	if p.Percentile == 0 {
		p.Percentile = a.defaultPercentile
	}
	// checked here as well so an invalid request does not pay for training
	if p.Percentile <= 0 || p.Percentile > 100 {
		return nil, &models.InvalidParameterError{Param: "percentile", Value: p.Percentile, Reason: "must be in (0, 100]"}
	}
	ds, err := a.loadSeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	key := icache.Key("busy_periods", ds.series, p.Percentile, p.WithForecast, a.busyHorizon)
	if hit, ok := icache.Lookup[models.BusyPeriodReport](ctx, a.cache, key); ok {
		metrics.ReportCacheLookups.WithLabelValues("busy_periods", "hit").Inc()
		return hit, nil
	}
	metrics.ReportCacheLookups.WithLabelValues("busy_periods", "miss").Inc()

	var future []models.ForecastPoint
	if p.WithForecast {
		fc, err := a.train(ctx, ds.daily, a.busyHorizon)
		switch {
		case err == nil:
			future = fc.FuturePredictions
		case recoverable(err):
			// history-only report; the forecast-dependent fields stay absent
			if a.l != nil {
				a.l.Warn("busy periods without forecast", applogger.Error(err))
			}
		default:
			return nil, err
		}
	}

	report, err := a.busy.Analyze(ctx, ds.daily, p.Percentile, future)
	if err != nil {
		return nil, err
	}
	a.persist(ctx, key, report)
	return report, nil
}

type CapacityParams struct {
	From string
	To   string
}

func (a *AdmissionAnalyzer) Capacity(ctx context.Context, p CapacityParams) (*models.CapacityReport, error) {
	ds, err := a.loadSeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	key := icache.Key("capacity", ds.series)
	if hit, ok := icache.Lookup[models.CapacityReport](ctx, a.cache, key); ok {
		metrics.ReportCacheLookups.WithLabelValues("capacity", "hit").Inc()
		return hit, nil
	}
	metrics.ReportCacheLookups.WithLabelValues("capacity", "miss").Inc()

	report, err := a.capacity.Analyze(ctx, ds.daily)
	if err != nil {
		return nil, err
	}
	a.persist(ctx, key, report)
	return report, nil
}

type SummaryParams struct {
	From string
	To   string
}

func (a *AdmissionAnalyzer) Summary(ctx context.Context, p SummaryParams) (*models.CohortSummary, error) {
	w, err := parseWindow(p.From, p.To)
	if err != nil {
		return nil, err
	}
	batch, err := a.store.Load(ctx, w)
	if err != nil {
		return nil, err
	}

	key := icache.Key("summary", batchFingerprint(batch))
	if hit, ok := icache.Lookup[models.CohortSummary](ctx, a.cache, key); ok {
		metrics.ReportCacheLookups.WithLabelValues("summary", "hit").Inc()
		return hit, nil
	}
	metrics.ReportCacheLookups.WithLabelValues("summary", "miss").Inc()

	sum, err := a.cohort.Summarize(ctx, batch)
	if err != nil {
		return nil, err
	}
	a.persist(ctx, key, sum)
	return sum, nil
}

type AnalysisParams struct {
	Horizon    int
	Percentile float64
	From       string
	To         string
}

// FullAnalysis produces every report over a single load. A forecast failure
// on sparse history degrades to the model-free sections instead of failing
// the whole run.
func (a *AdmissionAnalyzer) FullAnalysis(ctx context.Context, p AnalysisParams) (*models.AdmissionsAnalysis, error) {
	if p.Horizon == 0 {
		p.Horizon = a.defaultHorizon
	}
	if p.Percentile == 0 {
		p.Percentile = a.defaultPercentile
	}
	if p.Percentile <= 0 || p.Percentile > 100 {
		return nil, &models.InvalidParameterError{Param: "percentile", Value: p.Percentile, Reason: "must be in (0, 100]"}
	}

	ds, err := a.loadSeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	res := &models.AdmissionsAnalysis{GeneratedAt: time.Now().UTC()}

	// forecast first; its points feed the busy classification
	fc, err := a.train(ctx, ds.daily, p.Horizon)
	switch {
	case err == nil:
		res.Forecast = fc
	case recoverable(err):
		if a.l != nil {
			a.l.Warn("analysis without forecast", applogger.Error(err))
		}
	default:
		return nil, err
	}

	var future []models.ForecastPoint
	if res.Forecast != nil {
		future = res.Forecast.FuturePredictions
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := a.busy.Analyze(ctx, ds.daily, p.Percentile, future)
		ch <- item{"busy_periods", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := a.capacity.Analyze(ctx, ds.daily)
		ch <- item{"capacity", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := a.cohort.Summarize(ctx, ds.batch)
		ch <- item{"summary", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			return nil, fmt.Errorf("%s: %w", it.name, it.err)
		}
		switch it.name {
		case "busy_periods":
			res.BusyPeriods = it.val.(*models.BusyPeriodReport)
		case "capacity":
			res.Capacity = it.val.(*models.CapacityReport)
		case "summary":
			res.Summary = it.val.(*models.CohortSummary)
		}
	}
	return res, nil
}

type dataset struct {
	batch   models.AdmissionBatch
	daily   []models.DailyAggregate
	series  string // fingerprint of the dense daily counts
	dropped int
}

func (a *AdmissionAnalyzer) loadSeries(ctx context.Context, from, to string) (*dataset, error) {
	w, err := parseWindow(from, to)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	batch, err := a.store.Load(ctx, w)
	if err != nil {
		return nil, err
	}
	daily, dropped, err := forecast.BuildDailySeries(batch.Events)
	if err != nil {
		return nil, err
	}
	dropped += batch.Dropped

	if a.rec != nil {
		a.rec.RecordLatency("load_series", time.Since(start).Seconds())
		a.rec.RecordLastDailyCount(a.backend, float64(daily[len(daily)-1].Count))
	}
	metrics.DroppedRecords.WithLabelValues(a.backend).Set(float64(dropped))
	if dropped > 0 && a.l != nil {
		a.l.Warn("dropped admission records",
			applogger.Int("dropped", dropped),
			applogger.String("backend", a.backend),
		)
	}

	dates := make([]time.Time, len(daily))
	counts := make([]int, len(daily))
	for i := range daily {
		dates[i] = daily[i].Date
		counts[i] = daily[i].Count
	}
	return &dataset{
		batch:   batch,
		daily:   daily,
		series:  pkgcache.Fingerprint(dates, counts),
		dropped: dropped,
	}, nil
}

// train runs one model-selection pass under the training slot limiter.
func (a *AdmissionAnalyzer) train(ctx context.Context, daily []models.DailyAggregate, horizon int) (*models.ForecastResult, error) {
	if a.slots != nil {
		if err := a.slots.Acquire(ctx); err != nil {
			return nil, err
		}
		defer a.slots.Release()
	}

	start := time.Now()
	res, err := a.forecaster.Forecast(ctx, daily, horizon)
	if err != nil {
		return nil, err
	}
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())

	fitted := map[string]bool{}
	for _, m := range res.ModelMetrics {
		fitted[m.Model] = true
		metrics.ModelCandidates.WithLabelValues(m.Model, "fitted").Inc()
	}
	for _, fam := range []forecast.Family{
		forecast.FamilyRandomForest,
		forecast.FamilyGradientBoosting,
		forecast.FamilyLinear,
		forecast.FamilyPoissonGLM,
	} {
		if !fitted[string(fam)] {
			metrics.ModelCandidates.WithLabelValues(string(fam), "excluded").Inc()
		}
	}
	metrics.ModelCandidates.WithLabelValues(res.BestModel, "selected").Inc()
	return res, nil
}

func (a *AdmissionAnalyzer) persist(ctx context.Context, key string, report interface{}) {
	if err := a.cache.Store(ctx, key, report); err != nil && a.l != nil {
		a.l.Warn("report cache store error", applogger.Error(err))
	}
}

// recoverable reports whether a forecast failure still permits the
// model-free sections of a report.
func recoverable(err error) bool {
	var ide *models.InsufficientDataError
	var mfe *models.ModelFitError
	return errors.As(err, &ide) || errors.As(err, &mfe)
}

func parseWindow(from, to string) (domrepo.Window, error) {
	var w domrepo.Window
	if from != "" {
		t, ok := util.ParseDate(from)
		if !ok {
			return w, &models.InvalidParameterError{Param: "from", Value: from, Reason: "unparseable date"}
		}
		w.From = util.Day(t)
	}
	if to != "" {
		t, ok := util.ParseDate(to)
		if !ok {
			return w, &models.InvalidParameterError{Param: "to", Value: to, Reason: "unparseable date"}
		}
		w.To = util.Day(t)
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return w, &models.InvalidParameterError{Param: "to", Value: to, Reason: "window ends before it starts"}
	}
	return w, nil
}

// batchFingerprint hashes every event field that shapes a cohort summary.
// The daily-count fingerprint is not enough here: two loads can share a
// count profile while differing in demographics.
func batchFingerprint(batch models.AdmissionBatch) string {
	h := sha256.New()
	var buf [8]byte
	put := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for i := range batch.Events {
		e := &batch.Events[i]
		put(e.AdmittedAt.Unix())
		put(e.DischargedAt.Unix())
		put(int64(e.Age))
		h.Write([]byte(e.Gender))
		h.Write([]byte{0})
		h.Write([]byte(e.Outcome))
		h.Write([]byte{0})
		var flags byte
		for bit, on := range []bool{
			e.Rural,
			e.Risks.Smoking,
			e.Risks.Alcohol,
			e.Risks.Diabetes,
			e.Risks.Hypertension,
			e.Risks.CoronaryArteryDisease,
			e.Risks.Cardiomyopathy,
			e.Risks.ChronicKidneyDisease,
		} {
			if on {
				flags |= 1 << bit
			}
		}
		h.Write([]byte{flags})
	}
	put(int64(batch.Dropped))
	return hex.EncodeToString(h.Sum(nil))
}
