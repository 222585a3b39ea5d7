package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/middleware"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/usecase"
	pkgcache "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/cache"
	pkgch "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/clickhouse"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/config"
	xhttp "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/http"
	pkgkafka "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/kafka"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
)

// App owns process lifecycle for the admissions service: the HTTP API plus
// the optional Kafka intake and export worker, started together and torn
// down in dependency order.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	consumer    *pkgkafka.Consumer
	intake      pkgkafka.MessageHandler
	batcher     *middleware.IntakeBatcher
	chClient    *pkgch.Client
	cache       pkgcache.Service
	exporter    *usecase.ExportWorker
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New assembles an App. The consumer, batcher, ClickHouse client, cache and
// exporter may each be nil; Run skips whatever was not wired.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	consumer *pkgkafka.Consumer,
	intake pkgkafka.MessageHandler,
	batcher *middleware.IntakeBatcher,
	chClient *pkgch.Client,
	cacheSvc pkgcache.Service,
	exporter *usecase.ExportWorker,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		consumer: consumer,
		intake:   intake,
		batcher:  batcher,
		chClient: chClient,
		cache:    cacheSvc,
		exporter: exporter,
	}
}

// SetHTTPHandler installs the route handler; the DI layer calls it once
// after construction.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// runLogger returns the wired logger, or a console fallback so the lifecycle
// always has somewhere to report.
func (a *App) runLogger() (*applogger.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	return applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
}

// Run brings the service up and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := a.runLogger()
	if err != nil {
		log.Printf("logger init: %v", err)
		return err
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, 2*time.Second),
	)

	a.startIntake(ctx, l)
	a.startExporter(ctx, l)

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("api listening", applogger.Int("port", a.cfg.Server.Port))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// startIntake launches the batcher and the Kafka consumer. The batcher must
// be draining before the first message lands.
func (a *App) startIntake(ctx context.Context, l *applogger.Logger) {
	if a.batcher != nil {
		a.batcher.Start(ctx)
	}
	if a.consumer == nil || a.intake == nil {
		return
	}
	a.consumer.RegisterHandler(a.intake)
	go func() {
		if err := a.consumer.Start(); err != nil {
			l.Error("kafka intake failed", applogger.Error(err))
		}
	}()
	l.Info("admission intake started", applogger.String("topic", a.intake.Topic()))
}

func (a *App) startExporter(ctx context.Context, l *applogger.Logger) {
	if a.exporter == nil {
		return
	}
	go func() {
		if err := a.exporter.Start(ctx); err != nil {
			l.Error("export worker error", applogger.Error(err))
		}
	}()
	l.Info("export worker started", applogger.String("dir", a.cfg.Export.Dir))
}

// shutdown stops everything in dependency order. The HTTP listener goes
// first so no new work arrives; intake flushes before its writers close.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(stopCtx); err != nil {
		l.Error("http listener shutdown", applogger.Error(err))
	}

	warn := func(what string, err error) {
		if err != nil {
			l.Warn(what, applogger.Error(err))
		}
	}
	if a.consumer != nil {
		warn("kafka consumer stop error", a.consumer.Stop(stopCtx))
	}
	if a.batcher != nil {
		warn("intake batcher stop error", a.batcher.Stop(stopCtx))
	}
	if a.exporter != nil {
		warn("export worker stop error", a.exporter.Stop(stopCtx))
	}
	if a.chClient != nil {
		warn("clickhouse close error", a.chClient.Close())
	}
	if a.cache != nil {
		warn("cache close error", a.cache.Close())
	}
	if c := l.Collector(); c != nil {
		c.Close()
	}

	l.Info("shutdown complete")
	return nil
}
