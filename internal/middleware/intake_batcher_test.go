package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]*models.AdmissionEvent
	fails   int
}

func (s *recordingSink) StoreBatch(ctx context.Context, events []*models.AdmissionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return context.DeadlineExceeded
	}
	cp := make([]*models.AdmissionEvent, len(events))
	copy(cp, events)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *recordingSink) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	events int
}

func (m *countingMetrics) RecordEventsIngested(backend, source string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events += n
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func (m *countingMetrics) RecordLastDailyCount(source string, count float64) {}

func (m *countingMetrics) RecordLatency(op string, seconds float64) {}

func (m *countingMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func intakeEvent(day int) *models.AdmissionEvent {
	return &models.AdmissionEvent{
		AdmittedAt: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Age:        60,
		Gender:     "F",
		Outcome:    "DISCHARGE",
	}
}

func TestBatcherFlushesBySize(t *testing.T) {
	sink := &recordingSink{}
	b := NewIntakeBatcher(sink, &countingMetrics{}, WithBatchSize(2), WithBatchTimeout(time.Hour))
	b.Start(context.Background())
	defer b.Stop(context.Background())

	if err := b.Add(context.Background(), intakeEvent(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(context.Background(), intakeEvent(2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	waitFor(t, func() bool { return sink.stored() == 2 })
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Fatalf("expected one batch of two, got %v", sink.batches)
	}
}

func TestBatcherFlushesOnTimeout(t *testing.T) {
	sink := &recordingSink{}
	b := NewIntakeBatcher(sink, &countingMetrics{}, WithBatchSize(100), WithBatchTimeout(20*time.Millisecond))
	b.Start(context.Background())
	defer b.Stop(context.Background())

	if err := b.Add(context.Background(), intakeEvent(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, func() bool { return sink.stored() == 1 })
}

func TestBatcherStopFlushesPartial(t *testing.T) {
	sink := &recordingSink{}
	m := &countingMetrics{}
	b := NewIntakeBatcher(sink, m, WithBatchSize(100), WithBatchTimeout(time.Hour))
	b.Start(context.Background())

	for i := 1; i <= 3; i++ {
		if err := b.Add(context.Background(), intakeEvent(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.stored() != 3 {
		t.Fatalf("expected shutdown flush of 3, got %d", sink.stored())
	}
}

func TestBatcherRetriesFailedFlush(t *testing.T) {
	sink := &recordingSink{fails: 1}
	m := &countingMetrics{}
	b := NewIntakeBatcher(sink, m, WithBatchSize(1), WithBatchTimeout(10*time.Millisecond))
	b.Start(context.Background())
	defer b.Stop(context.Background())

	if err := b.Add(context.Background(), intakeEvent(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, func() bool { return sink.stored() == 1 })
	if m.errorCount("intake_flush") == 0 {
		t.Fatalf("expected a recorded flush failure")
	}
}

func TestAddRejectsBadEvents(t *testing.T) {
	m := &countingMetrics{}
	b := NewIntakeBatcher(&recordingSink{}, m, WithBufferSize(4))

	cases := []*models.AdmissionEvent{
		nil,
		{Age: 50},
		{AdmittedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Age: -1},
		{
			AdmittedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			DischargedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for i, e := range cases {
		if err := b.Add(context.Background(), e); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if m.errorCount("intake_validate") != len(cases) {
		t.Fatalf("expected %d validation errors, got %d", len(cases), m.errorCount("intake_validate"))
	}
	if len(b.events) != 0 {
		t.Fatalf("rejected events must not be queued")
	}
}

func TestAddErrsWhenBufferFull(t *testing.T) {
	m := &countingMetrics{}
	b := NewIntakeBatcher(&recordingSink{}, m, WithBufferSize(1))

	if err := b.Add(context.Background(), intakeEvent(1)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := b.Add(context.Background(), intakeEvent(2)); err == nil {
		t.Fatalf("expected buffer-full error")
	}
	if m.errorCount("intake_buffer_full") != 1 {
		t.Fatalf("expected buffer-full to be recorded")
	}
}
