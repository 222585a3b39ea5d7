package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/metrics"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/ratelimit"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/usecase"
	xhttp "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/http"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
)

// AdmissionsHandler exposes the analysis reports over HTTP.
type AdmissionsHandler struct {
	analyzer *usecase.AdmissionAnalyzer
	exporter *usecase.ExportWorker
	store    domrepo.AdmissionStore
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewAdmissionsHandler(analyzer *usecase.AdmissionAnalyzer) *AdmissionsHandler {
	metrics.Register()
	return &AdmissionsHandler{analyzer: analyzer, rl: ratelimit.New()}
}

// SetExporter enables the exports endpoint.
func (h *AdmissionsHandler) SetExporter(w *usecase.ExportWorker) { h.exporter = w }

// SetStore lets the health endpoint ping the data backend.
func (h *AdmissionsHandler) SetStore(s domrepo.AdmissionStore) { h.store = s }

// SetLogger injects a structured logger.
func (h *AdmissionsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *AdmissionsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/api/v1/diagnostics", h.Diagnostics)

	g := e.Group("/api/v1/admissions")
	g.GET("/forecast", h.Forecast)
	g.GET("/busy-periods", h.BusyPeriods)
	g.GET("/capacity", h.Capacity)
	g.GET("/summary", h.Summary)
	g.POST("/exports", h.Export)
}

func (h *AdmissionsHandler) Forecast(c echo.Context) error {
	start := time.Now()
	endpoint := "forecast"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// training is the expensive path, keep the per-client budget small
	if !h.rl.Allow(c.RealIP()+":forecast", 3, 1) {
		if h.l != nil {
			h.l.Warn("admissions.forecast rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.analyzer.Forecast(c.Request().Context(), usecase.ForecastParams{
		Horizon: req.Horizon,
		From:    req.From,
		To:      req.To,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AdmissionsHandler) BusyPeriods(c echo.Context) error {
	start := time.Now()
	endpoint := "busy_periods"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.BusyPeriodsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":busy", 3, 1) {
		if h.l != nil {
			h.l.Warn("admissions.busy_periods rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	withForecast := req.WithForecast == nil || *req.WithForecast
	res, err := h.analyzer.BusyPeriods(c.Request().Context(), usecase.BusyPeriodsParams{
		Percentile:   req.Percentile,
		WithForecast: withForecast,
		From:         req.From,
		To:           req.To,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AdmissionsHandler) Capacity(c echo.Context) error {
	start := time.Now()
	endpoint := "capacity"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CapacityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":capacity", 5, 2) {
		if h.l != nil {
			h.l.Warn("admissions.capacity rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.analyzer.Capacity(c.Request().Context(), usecase.CapacityParams{From: req.From, To: req.To})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AdmissionsHandler) Summary(c echo.Context) error {
	start := time.Now()
	endpoint := "summary"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":summary", 5, 2) {
		if h.l != nil {
			h.l.Warn("admissions.summary rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.analyzer.Summary(c.Request().Context(), usecase.SummaryParams{From: req.From, To: req.To})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AdmissionsHandler) Export(c echo.Context) error {
	start := time.Now()
	endpoint := "export"
	defer func() { metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.exporter == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("exports are not configured"))
	}
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":export", 2, 1) {
		if h.l != nil {
			h.l.Warn("admissions.export rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.exporter.Submit(c.Request().Context(), usecase.ExportPayload{
		Prefix:     req.Prefix,
		Horizon:    req.Horizon,
		Percentile: req.Percentile,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.CreatedResponse(c, res)
}

// Health reports liveness and, when a store is attached, backend reachability.
func (h *AdmissionsHandler) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			if h.l != nil {
				h.l.Warn("health backend ping failed", applogger.Error(err))
			}
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Diagnostics serves the aggregated warn/error events the logger collected.
func (h *AdmissionsHandler) Diagnostics(c echo.Context) error {
	if h.l == nil || h.l.Collector() == nil {
		return xhttp.SuccessResponse(c, []applogger.DiagnosticEvent{})
	}
	return xhttp.SuccessResponse(c, h.l.Collector().Snapshot())
}

// fail maps domain errors onto responses: bad parameters are the caller's
// fault, a dataset too thin to model is unprocessable, anything else is ours.
func (h *AdmissionsHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.AnalysisErrors.WithLabelValues(endpoint).Inc()
	if h.l != nil {
		h.l.Error("admissions."+endpoint+" error", applogger.Error(err))
	}

	var ipe *models.InvalidParameterError
	if errors.As(err, &ipe) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(ipe.Error()))
	}
	var ide *models.InsufficientDataError
	if errors.As(err, &ide) {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError(ide.Error()))
	}
	return xhttp.AppErrorResponse(c, err)
}
