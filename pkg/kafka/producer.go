package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// ProducerOption adjusts ProducerConfig before the writer is built.
type ProducerOption func(*ProducerConfig)

// ProducerConfig collects the knobs for the shared writer.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	HashByKey    bool

	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
}

// WithBrokers sets the bootstrap broker list.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithRequiredAcks sets required acknowledgements (-1 = all replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

// WithCompression picks the codec: gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithMaxAttempts caps writer-level delivery attempts.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

// WithTimeouts sets the writer's write and read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.WriteTimeout, c.ReadTimeout = write, read }
}

// WithBatchSize sets how many messages a batch may hold.
func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize = size }
}

// WithBatchBytes sets the byte budget per batch.
func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchBytes = bytes }
}

// WithBatchTimeout sets how long an underfilled batch may linger.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchTimeout = timeout }
}

// WithAsync toggles fire-and-forget writes.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey switches to the hash balancer so messages sharing a key land
// on one partition and keep their order.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

// Message is one producer payload with an optional partitioning key.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer publishes admission events and derived reports. Values may be raw
// bytes, strings, or anything JSON-marshalable.
type Producer struct {
	writer      *kafka.Writer
	compression string
}

// NewProducer builds a Producer. Defaults lean toward durability: acks from
// all replicas, gzip compression, three delivery attempts.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1, MaxAttempts: 3, Compression: "gzip",
		WriteTimeout: 10 * time.Second, ReadTimeout: 10 * time.Second,
		BatchSize: 100, BatchBytes: 1 << 20, BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     balancer,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compressionCodec(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,

		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		Async:        cfg.Async,
	}

	registerProducerMetrics()
	return &Producer{writer: writer, compression: cfg.Compression}, nil
}

// Publish sends a single message to the topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	payload, err := encodeValue(value)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: payload,
		Time:  time.Now(),
	})
	p.record(topic, int64(len(payload)), 1, time.Since(start), err)
	return err
}

// PublishBatch sends the messages in one writer call so the batching knobs
// actually apply.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	batch := make([]kafka.Message, 0, len(messages))
	var size int64
	for _, m := range messages {
		payload, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		batch = append(batch, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: payload,
			Time:  time.Now(),
		})
		size += int64(len(payload))
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, batch...)
	p.record(topic, size, len(batch), time.Since(start), err)
	return err
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return payload, nil
	}
}

// codecs maps config names to kafka-go compression codecs.
var codecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// compressionCodec resolves a configured codec name; anything unrecognized
// falls back to gzip.
func compressionCodec(name string) kafka.Compression {
	if c, ok := codecs[name]; ok {
		return c
	}
	return kafka.Gzip
}

func (p *Producer) record(topic string, bytes int64, count int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		pubErrors.WithLabelValues(topic).Inc()
	}
	pubMessages.WithLabelValues(topic, p.compression, result).Add(float64(count))
	pubBytes.WithLabelValues(topic, p.compression).Add(float64(bytes))
	pubLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}

var (
	producerMetricsOnce sync.Once
	pubMessages         *prometheus.CounterVec
	pubErrors           *prometheus.CounterVec
	pubBytes            *prometheus.CounterVec
	pubLatency          *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerMetricsOnce.Do(func() {
		pubMessages = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "admissions_kafka_producer_messages_total", Help: "Messages published, by result"},
			[]string{"topic", "compression", "result"},
		)
		pubErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "admissions_kafka_producer_errors_total", Help: "Publish errors"},
			[]string{"topic"},
		)
		pubBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "admissions_kafka_producer_bytes_total", Help: "Payload bytes published"},
			[]string{"topic", "compression"},
		)
		pubLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "admissions_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
	})
}
