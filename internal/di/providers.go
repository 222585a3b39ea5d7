package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/handler/api"
	mid "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/middleware"
	internalrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/repository"
	reportcache "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/cache"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/service/ratelimit"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/services/analytics"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/services/forecast"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/usecase"
	pkgcache "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/cache"
	pkgch "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/clickhouse"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/config"
	pkgkafka "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/kafka"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/metrics"
	pkgqueue "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/queue"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/server"
)

// ProvideLogger creates the application logger with the diagnostics ring
// buffer attached so /api/v1/diagnostics has something to serve.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(&applogger.CollectorConfig{MaxEntries: 512, MaxAge: 24 * time.Hour})
	return l, nil
}

// ProvideMetrics returns the Prometheus-backed recorder shared by the
// analysis and intake paths.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when that backend is
// configured. The csv backend runs without one.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Data.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.Data.ClickHouse.Host, cfg.Data.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Data.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Data.ClickHouse.User, cfg.Data.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.Data.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.Data.ClickHouse.AsyncInsert, cfg.Data.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.Data.ClickHouse.DialTimeout, cfg.Data.ClickHouse.ReadTimeout),
		pkgch.WithCompression(cfg.Data.ClickHouse.Compression),
		pkgch.WithMaxExecutionTime(cfg.Data.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAdmissionStore creates the admission store for the configured
// backend and initializes it: schema for clickhouse, a header check for csv.
func ProvideAdmissionStore(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) (repository.AdmissionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Data.Backend {
	case "clickhouse":
		store := internalrepo.NewCHAdmissionStore(chClient, cfg.Data.ClickHouse.Database)
		store.SetLogger(l)
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse admission store: %w", err)
		}
		return store, nil
	default: // csv
		store := internalrepo.NewCSVAdmissionStore(cfg.Data.CSV.Path, cfg.Data.CSV.DateFormat)
		store.SetLogger(l)
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("csv admission store: %w", err)
		}
		return store, nil
	}
}

// ProvideCacheService creates the configured report cache backend. Caching
// is optional; with it disabled every report is recomputed.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Type {
	case "redis", "layered":
		host, port, err := splitRedisAddr(cfg.Cache.Redis.Addr)
		if err != nil {
			return nil, err
		}
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Type == "layered" {
			return pkgcache.NewLayeredCache(rc), nil
		}
		return rc, nil
	default: // memory
		return pkgcache.NewMemoryCache(), nil
	}
}

// ProvideReportCache wraps the cache backend for report memoization.
func ProvideReportCache(svc pkgcache.Service, cfg *config.Config) *reportcache.ReportCache {
	return reportcache.New(svc, cfg.Cache.TTL)
}

// ProvideForecaster creates the admissions forecast engine.
func ProvideForecaster(cfg *config.Config, l *applogger.Logger) service.Forecaster {
	return forecast.NewEngine(forecast.Config{
		TestFraction:  cfg.Forecast.TestFraction,
		Estimators:    cfg.Forecast.Estimators,
		LearningRate:  cfg.Forecast.LearningRate,
		Seed:          cfg.Forecast.Seed,
		MinRows:       cfg.Forecast.MinTrainingRows,
		ConcurrentFit: cfg.Forecast.ConcurrentFit,
	}, l)
}

// ProvideBusyAnalyzer creates the busy-period analyzer.
func ProvideBusyAnalyzer() service.BusyPeriodAnalyzer {
	return forecast.NewBusyAnalyzer()
}

// ProvideCapacityAnalyzer creates the bed capacity analyzer.
func ProvideCapacityAnalyzer() service.CapacityAnalyzer {
	return forecast.NewCapacityAnalyzer()
}

// ProvideCohortAnalyzer creates the cohort summarizer.
func ProvideCohortAnalyzer() service.CohortAnalyzer {
	return analytics.NewSummarizer()
}

// ProvideAdmissionAnalyzer creates the analysis use case with the configured
// cache, metrics and training limits attached.
func ProvideAdmissionAnalyzer(
	store repository.AdmissionStore,
	forecaster service.Forecaster,
	busy service.BusyPeriodAnalyzer,
	capacity service.CapacityAnalyzer,
	cohort service.CohortAnalyzer,
	rc *reportcache.ReportCache,
	rec repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.AdmissionAnalyzer {
	a := usecase.NewAdmissionAnalyzer(store, forecaster, busy, capacity, cohort)
	a.SetCache(rc)
	a.SetRecorder(rec)
	a.SetLogger(l)
	a.SetBackend(cfg.Data.Backend)
	a.SetDefaults(cfg.Forecast.DefaultHorizonDays, cfg.Forecast.BusyPercentile)
	a.SetBusyHorizon(cfg.Forecast.BusyHorizonDays)
	a.SetSlots(ratelimit.NewSlots(cfg.Forecast.MaxConcurrentRuns))
	return a
}

// ProvideKafkaConsumer creates a Kafka consumer when intake is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Ingest.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Ingest.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Ingest.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Ingest.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Ingest.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Ingest.Kafka.Consumer.RetryMax, cfg.Ingest.Kafka.Consumer.BackoffMin, cfg.Ingest.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Ingest.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Ingest.Kafka.Consumer.MinBytes, cfg.Ingest.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.NewLoggingHook(l, time.Second)))
	return consumer, nil
}

// ProvideIntakeBatcher creates the write-side batcher between the Kafka
// handler and the admission store. Only backends that accept writes get one;
// the csv store is read-only.
func ProvideIntakeBatcher(store repository.AdmissionStore, rec repository.Metrics, cfg *config.Config, l *applogger.Logger) *mid.IntakeBatcher {
	if !cfg.Ingest.Enabled {
		return nil
	}
	sink, ok := store.(repository.AdmissionWriter)
	if !ok {
		if l != nil {
			l.Warn("intake disabled: configured data backend is read-only",
				applogger.String("backend", cfg.Data.Backend))
		}
		return nil
	}
	return mid.NewIntakeBatcher(sink, rec,
		mid.WithBatchSize(cfg.Ingest.BatchSize),
		mid.WithBatchTimeout(cfg.Ingest.BatchTimeout),
		mid.WithLabels(cfg.Data.Backend, "kafka"),
	)
}

// ProvideIntakeHandler registers the admission-event handler for the intake topic.
func ProvideIntakeHandler(batcher *mid.IntakeBatcher, rec repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if batcher == nil {
		return nil
	}
	return usecase.NewAdmissionIntakeHandler(cfg.Ingest.Kafka.Topic, batcher, rec)
}

// ProvideExportWorker creates the analysis export worker, backed by a Redis
// job queue when one is configured and running inline otherwise.
func ProvideExportWorker(analyzer *usecase.AdmissionAnalyzer, cfg *config.Config, l *applogger.Logger) *usecase.ExportWorker {
	w := usecase.NewExportWorker(analyzer, cfg.Export.Dir)
	w.SetLogger(l)

	if cfg.Export.Queue.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Export.Queue.Addr})
		opts := []pkgqueue.RedisQueueOption{}
		if cfg.Export.Queue.Name != "" {
			opts = append(opts, pkgqueue.WithKeyPrefix(cfg.Export.Queue.Name))
		}
		q := pkgqueue.NewRedisQueue(l,
			&pkgqueue.QueueConfig{Workers: cfg.Export.Queue.Workers},
			client, pkgqueue.ModeProducerConsumer, opts...)
		w.SetQueue(q)
	}
	return w
}

// ProvideAdmissionsHandler creates the HTTP handler for the analysis API.
func ProvideAdmissionsHandler(
	analyzer *usecase.AdmissionAnalyzer,
	exporter *usecase.ExportWorker,
	store repository.AdmissionStore,
	l *applogger.Logger,
) *api.AdmissionsHandler {
	h := api.NewAdmissionsHandler(analyzer)
	h.SetExporter(exporter)
	h.SetStore(store)
	h.SetLogger(l)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	intake pkgkafka.MessageHandler,
	batcher *mid.IntakeBatcher,
	chClient *pkgch.Client,
	cacheSvc pkgcache.Service,
	exporter *usecase.ExportWorker,
	handler *api.AdmissionsHandler,
) *server.App {
	app := server.New(cfg, l, consumer, intake, batcher, chClient, cacheSvc, exporter)
	app.SetHTTPHandler(handler)
	return app
}

// splitRedisAddr splits "host:port"; a bare host gets the default port.
func splitRedisAddr(addr string) (string, int, error) {
	if addr == "" {
		return "localhost", 6379, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("redis addr %q: %w", addr, err)
	}
	return host, port, nil
}
