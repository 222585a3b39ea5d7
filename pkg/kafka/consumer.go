package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes the payloads of one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption adjusts ConsumerConfig before the consumer is built.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig collects the knobs for the reader pool.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
}

// WithConsumerBrokers sets the bootstrap broker list.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

// WithConsumerGroupID names the consumer group.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

// WithConsumerWorkers sizes the handler pool.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) { c.WorkerCount = count }
}

// WithConsumerRetry bounds handler retries and their backoff window.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax, c.BackoffMin, c.BackoffMax = max, backoffMin, backoffMax
	}
}

// WithConsumerDLQ sets the dead-letter topic for messages that exhaust
// their retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

// WithConsumerFetch bounds the fetch size per poll.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) { c.MinBytes, c.MaxBytes = minBytes, maxBytes }
}

// WithConsumerBufferSize caps the internal queue; zero and below keep the
// default.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n <= 0 {
			return
		}
		c.BufferSize = n
	}
}

// Consumer reads the registered topics through a bounded queue into a worker
// pool. Messages of one partition are handled strictly one at a time so
// events keyed to the same day apply in order; a message that exhausts its
// retries goes to the DLQ and its offset is committed so it cannot wedge the
// partition.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	queue    chan inbound
	done     chan struct{}
	dlq      *kafka.Writer
	hook     ConsumerHook

	readerWG sync.WaitGroup
	workerWG sync.WaitGroup
	stopOnce sync.Once

	mu    sync.Mutex
	locks map[topicPartition]*sync.Mutex
}

type inbound struct {
	topic string
	km    kafka.Message
}

type topicPartition struct {
	topic     string
	partition int
}

// readPollTimeout bounds one ReadMessage call so the loop notices Stop.
const readPollTimeout = 3 * time.Second

// NewConsumer builds a consumer; readers are not opened until Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID: "default", WorkerCount: 1, BufferSize: 10,
		RetryMax: 3, BackoffMin: 50 * time.Millisecond, BackoffMax: 2 * time.Second,
		MinBytes: 10e3, MaxBytes: 10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	c := &Consumer{
		cfg:      cfg,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		queue:    make(chan inbound, cfg.BufferSize),
		done:     make(chan struct{}),
		locks:    make(map[topicPartition]*sync.Mutex),
		hook:     NoopHook{},
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	registerConsumerMetrics()
	return c, nil
}

// WithConsumerHook replaces the no-op lifecycle hook.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler registers a message handler for its topic. Call before
// Start; the first handler per topic wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		log.Printf("kafka consumer: duplicate handler for topic %s ignored", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per registered topic and launches the worker pool.
func (c *Consumer) Start() error {
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers: c.cfg.Brokers, Topic: topic, GroupID: c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes, MaxBytes: c.cfg.MaxBytes,
		})
		log.Printf("kafka consumer: subscribed topic=%s group=%s", topic, c.cfg.GroupID)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workerWG.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.readerWG.Add(1)
		go c.readLoop(topic, reader)
	}

	log.Printf("kafka consumer: running topics=%d workers=%d", len(c.readers), c.cfg.WorkerCount)
	return nil
}

// Stop winds the consumer down in dependency order: readers first, then the
// queue, then workers, then the network resources. The context caps how long
// each stage may take.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.done)

		if err := waitCtx(ctx, &c.readerWG); err != nil {
			stopErr = fmt.Errorf("stop readers: %w", err)
			return
		}
		// no reader can enqueue anymore, safe to close the queue
		close(c.queue)
		if err := waitCtx(ctx, &c.workerWG); err != nil {
			stopErr = fmt.Errorf("stop workers: %w", err)
			return
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("kafka consumer: close reader %s: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("kafka consumer: close dlq writer: %v", err)
			}
		}
		log.Printf("kafka consumer: stopped")
	})
	return stopErr
}

func waitCtx(ctx context.Context, wg *sync.WaitGroup) error {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finished:
		return nil
	}
}

func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.readerWG.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), readPollTimeout)
		km, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("kafka consumer: read %s: %v", topic, err)
			}
			continue
		}
		if !c.enqueue(inbound{topic: topic, km: km}) {
			return
		}
	}
}

// enqueue blocks until the message is queued or the consumer stops. Near a
// full queue the reader sleeps instead of spinning, which slows the fetch
// side down before the channel blocks it hard.
func (c *Consumer) enqueue(in inbound) bool {
	for {
		select {
		case c.queue <- in:
			queueDepth.WithLabelValues(in.topic).Set(float64(len(c.queue)))
			queueFullness.WithLabelValues(in.topic).Set(float64(len(c.queue)) / float64(cap(c.queue)))
			return true
		case <-c.done:
			return false
		default:
			full := float64(len(c.queue)) / float64(cap(c.queue))
			queueFullness.WithLabelValues(in.topic).Set(full)
			if full <= 0.8 {
				runtime.Gosched()
				continue
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (c *Consumer) worker() {
	defer c.workerWG.Done()
	for in := range c.queue {
		handler, ok := c.handlers[in.topic]
		if !ok {
			continue
		}
		c.process(handler, in)
	}
}

// process runs one message through the retry loop under its partition lock.
// A panicking handler is contained here so the worker survives it.
func (c *Consumer) process(handler MessageHandler, in inbound) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("kafka consumer: handler panic on %s: %v", in.topic, r)
		}
	}()

	lock := c.partitionLock(in.topic, in.km.Partition)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	err := c.handleWithRetry(handler, in)
	if err != nil {
		c.hook.OnError(context.Background(), in.topic, in.km, in.km.Value, err)
		log.Printf("kafka consumer: giving up on %s partition=%d offset=%d: %v",
			in.topic, in.km.Partition, in.km.Offset, err)
		c.sendToDLQ(in)
	}
	// commit on success, and after a DLQ hand-off so a poison message does
	// not hold the partition hostage
	if err == nil || c.dlq != nil {
		if reader := c.readers[in.topic]; reader != nil {
			_ = c.commit(reader, in.km)
		}
	}
	handleLatency.WithLabelValues(in.topic).Observe(time.Since(start).Seconds())
}

// handleWithRetry runs the hook/handle cycle until success or RetryMax
// retries are spent. An error from BeforeHandle rejects the message outright;
// retrying a hook decision would not change it.
func (c *Consumer) handleWithRetry(handler MessageHandler, in inbound) error {
	for attempt := 1; ; attempt++ {
		hctx, hkm, hdata, berr := c.hook.BeforeHandle(context.Background(), in.topic, in.km, in.km.Value)
		if berr != nil {
			return berr
		}
		err := handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, in.topic, hkm, hdata, err)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		c.hook.OnError(hctx, in.topic, hkm, hdata, err)
		select {
		case <-time.After(backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.done:
			return err
		}
	}
}

func (c *Consumer) sendToDLQ(in inbound) {
	if c.dlq == nil {
		return
	}
	msg := kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Value:   in.km.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(in.topic)}},
	}
	if err := c.dlq.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("kafka consumer: dlq write %s: %v", c.cfg.DLQTopic, err)
	}
}

// commit retries a few times. An uncommitted offset only means redelivery,
// so the error is logged rather than escalated.
func (c *Consumer) commit(reader *kafka.Reader, km kafka.Message) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(cctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	log.Printf("kafka consumer: commit failed: %v", err)
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := topicPartition{topic: topic, partition: partition}
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// backoff doubles from lo per attempt, capped at hi, minus up to half of
// random jitter so retrying consumers spread out.
func backoff(lo, hi time.Duration, attempt int) time.Duration {
	if lo <= 0 {
		lo = 50 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	d := lo << uint(attempt-1)
	if d > hi || d <= 0 {
		d = hi
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

var (
	consumerMetricsOnce sync.Once
	queueDepth          *prometheus.GaugeVec
	queueFullness       *prometheus.GaugeVec
	handleLatency       *prometheus.HistogramVec
)

func registerConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		queueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "admissions_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer queue"},
			[]string{"topic"},
		)
		queueFullness = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "admissions_kafka_consumer_queue_fullness", Help: "Queue utilization ratio (len/cap)"},
			[]string{"topic"},
		)
		handleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "admissions_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
