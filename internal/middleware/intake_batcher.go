package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
)

// Sink is the minimal writer interface the batcher needs.
type Sink interface {
	StoreBatch(ctx context.Context, events []*models.AdmissionEvent) error
}

// IntakeBatcher sits between the intake stream and the admission store.
// It validates incoming events and groups them so the store sees chunked
// inserts instead of one round trip per message. A full buffer pushes the
// error back to the consumer, which is where retry belongs.
type IntakeBatcher struct {
	sink    Sink
	metrics domrepo.Metrics
	size    int
	maxWait time.Duration
	events  chan *models.AdmissionEvent
	stopCh  chan struct{}
	done    chan struct{}
	started bool
	mu      sync.Mutex
	backend string
	source  string
}

type BatcherOption func(*IntakeBatcher)

// WithBatchSize sets how many events one insert carries.
func WithBatchSize(n int) BatcherOption {
	return func(b *IntakeBatcher) {
		if n > 0 {
			b.size = n
		}
	}
}

// WithBatchTimeout sets how long a partial batch may wait before flushing.
func WithBatchTimeout(d time.Duration) BatcherOption {
	return func(b *IntakeBatcher) {
		if d > 0 {
			b.maxWait = d
		}
	}
}

// WithBufferSize sets the queue capacity between Add and the flush loop.
func WithBufferSize(n int) BatcherOption {
	return func(b *IntakeBatcher) {
		if n > 0 {
			b.events = make(chan *models.AdmissionEvent, n)
		}
	}
}

// WithLabels sets the backend/source labels stamped on ingest metrics.
func WithLabels(backend, source string) BatcherOption {
	return func(b *IntakeBatcher) {
		if backend != "" {
			b.backend = backend
		}
		if source != "" {
			b.source = source
		}
	}
}

// NewIntakeBatcher creates a batcher writing to sink.
func NewIntakeBatcher(sink Sink, metrics domrepo.Metrics, opts ...BatcherOption) *IntakeBatcher {
	b := &IntakeBatcher{
		sink:    sink,
		metrics: metrics,
		size:    500,
		maxWait: 2 * time.Second,
		events:  make(chan *models.AdmissionEvent, 1000),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		backend: "clickhouse",
		source:  "kafka",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the background flush loop.
func (b *IntakeBatcher) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.maxWait)
		defer ticker.Stop()

		batch := make([]*models.AdmissionEvent, 0, b.size)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				// take whatever was queued before the stop, then flush once
				for drained := false; !drained; {
					select {
					case e := <-b.events:
						if e != nil {
							batch = append(batch, e)
						}
					default:
						drained = true
					}
				}
				if len(batch) > 0 {
					if err := b.sink.StoreBatch(ctx, batch); err != nil {
						b.metrics.RecordError("intake_shutdown_flush")
					} else {
						b.metrics.RecordEventsIngested(b.backend, b.source, len(batch))
					}
				}
				return
			case e := <-b.events:
				if e == nil {
					continue
				}
				batch = append(batch, e)
				if len(batch) >= b.size {
					batch = b.flush(ctx, batch, &backoff)
				}
			case <-ticker.C:
				if len(batch) > 0 {
					batch = b.flush(ctx, batch, &backoff)
				}
			}
		}
	}()
}

// Stop flushes the partial batch and stops the loop.
func (b *IntakeBatcher) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopCh)
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add validates an event and queues it for the next batch. A full queue is
// an error so the caller can leave the message unacknowledged.
func (b *IntakeBatcher) Add(ctx context.Context, e *models.AdmissionEvent) error {
	if err := validateEvent(e); err != nil {
		b.metrics.RecordError("intake_validate")
		return err
	}
	select {
	case b.events <- e:
		return nil
	default:
		b.metrics.RecordError("intake_buffer_full")
		return fmt.Errorf("intake buffer full (%d queued)", len(b.events))
	}
}

// flush writes one batch. On failure the events are requeued when there is
// room; the backoff keeps a dead store from spinning the loop.
func (b *IntakeBatcher) flush(ctx context.Context, batch []*models.AdmissionEvent, backoff *time.Duration) []*models.AdmissionEvent {
	start := time.Now()
	if err := b.sink.StoreBatch(ctx, batch); err != nil {
		if *backoff < 2*time.Second {
			*backoff *= 2
		}
		b.metrics.RecordError("intake_flush")
		time.Sleep(*backoff)
		for _, e := range batch {
			select {
			case b.events <- e:
			default:
				b.metrics.RecordError("intake_buffer_drop")
			}
		}
		return batch[:0]
	}
	*backoff = 50 * time.Millisecond
	b.metrics.RecordEventsIngested(b.backend, b.source, len(batch))
	b.metrics.RecordLatency("intake_flush", time.Since(start).Seconds())
	return batch[:0]
}

func validateEvent(e *models.AdmissionEvent) error {
	if e == nil {
		return fmt.Errorf("event nil")
	}
	if e.AdmittedAt.IsZero() {
		return fmt.Errorf("admission timestamp missing")
	}
	if e.Age < 0 {
		return fmt.Errorf("negative age")
	}
	if !e.DischargedAt.IsZero() && e.DischargedAt.Before(e.AdmittedAt) {
		return fmt.Errorf("discharge precedes admission")
	}
	return nil
}
