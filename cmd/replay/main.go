// Command replay publishes historical admissions from a CSV export onto the
// Kafka intake topic. It backfills a fresh ClickHouse deployment from the
// same file the csv backend serves, and doubles as a load generator for the
// intake pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	internalrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/repository"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/config"
	pkgkafka "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/kafka"
)

// wireEvent matches the intake consumer's message schema.
type wireEvent struct {
	AdmittedAt   string          `json:"admitted_at"`
	DischargedAt string          `json:"discharged_at,omitempty"`
	Age          int             `json:"age"`
	Gender       string          `json:"gender"`
	Outcome      string          `json:"outcome"`
	Rural        bool            `json:"rural"`
	Risks        map[string]bool `json:"risks,omitempty"`
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	csvPath := flag.String("csv", "", "CSV file to replay (defaults to data.csv.path)")
	chunk := flag.Int("chunk", 500, "events per publish batch")
	limit := flag.Int("limit", 0, "stop after this many events (0 = all)")
	pause := flag.Duration("pause", 0, "sleep between batches")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if len(cfg.Ingest.Kafka.Brokers) == 0 {
		log.Fatal("ingest.kafka.brokers is empty; nothing to replay into")
	}

	path := *csvPath
	if path == "" {
		path = cfg.Data.CSV.Path
	}
	if path == "" {
		log.Fatal("no CSV path: pass -csv or set data.csv.path")
	}

	ctx := context.Background()
	store := internalrepo.NewCSVAdmissionStore(path, cfg.Data.CSV.DateFormat)
	if err := store.Init(ctx); err != nil {
		log.Fatalf("open csv: %v", err)
	}
	batch, err := store.Load(ctx, domrepo.Window{})
	if err != nil {
		log.Fatalf("load csv: %v", err)
	}
	events := batch.Events
	if *limit > 0 && *limit < len(events) {
		events = events[:*limit]
	}
	log.Printf("replay: %d events from %s (%d rows dropped)", len(events), path, batch.Dropped)

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Ingest.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Ingest.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Ingest.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Ingest.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Ingest.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Ingest.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Ingest.Kafka.Producer.WriteTimeout, cfg.Ingest.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Ingest.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Ingest.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true), // same-day admissions stay in one partition
	)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	defer producer.Close()

	topic := cfg.Ingest.Kafka.Topic
	sent := 0
	for start := 0; start < len(events); start += *chunk {
		end := start + *chunk
		if end > len(events) {
			end = len(events)
		}
		msgs := make([]pkgkafka.Message, 0, end-start)
		for _, e := range events[start:end] {
			msgs = append(msgs, pkgkafka.Message{
				Key:   []byte(e.AdmittedAt.Format("2006-01-02")),
				Value: toWire(e),
			})
		}
		if err := producer.PublishBatch(ctx, topic, msgs); err != nil {
			log.Fatalf("publish batch at offset %d: %v", start, err)
		}
		sent += len(msgs)
		if *pause > 0 {
			time.Sleep(*pause)
		}
	}

	log.Printf("replay complete: published=%d topic=%s", sent, topic)
}

func toWire(e models.AdmissionEvent) wireEvent {
	w := wireEvent{
		AdmittedAt: e.AdmittedAt.Format("2006-01-02"),
		Age:        e.Age,
		Gender:     e.Gender,
		Outcome:    e.Outcome,
		Rural:      e.Rural,
		Risks:      e.Risks.Set(),
	}
	if !e.DischargedAt.IsZero() {
		w.DischargedAt = e.DischargedAt.Format("2006-01-02")
	}
	return w
}
