package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/middleware"
)

type captureSink struct {
	mu     sync.Mutex
	events []*models.AdmissionEvent
}

func (s *captureSink) StoreBatch(ctx context.Context, events []*models.AdmissionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *captureSink) first() *models.AdmissionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[0]
}

type intakeMetrics struct {
	mu   sync.Mutex
	errs map[string]int
}

func (m *intakeMetrics) RecordEventsIngested(backend, source string, n int) {}

func (m *intakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.errs = map[string]int{}
	}
	m.errs[kind]++
}

func (m *intakeMetrics) RecordLastDailyCount(source string, count float64) {}

func (m *intakeMetrics) RecordLatency(op string, seconds float64) {}

func (m *intakeMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[kind]
}

func TestIntakeHandleParsesMessage(t *testing.T) {
	sink := &captureSink{}
	m := &intakeMetrics{}
	b := middleware.NewIntakeBatcher(sink, m, middleware.WithBatchSize(1))
	b.Start(context.Background())
	defer b.Stop(context.Background())

	h := NewAdmissionIntakeHandler("hospital.admissions", b, m)
	if h.Topic() != "hospital.admissions" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	msg := []byte(`{
		"admitted_at": "2024-03-05",
		"discharged_at": "2024-03-09",
		"age": 67,
		"gender": "F",
		"outcome": "DISCHARGE",
		"rural": true,
		"risks": {"diabetes": true, "chronic_kidney_disease": true, "gout": true}
	}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.first() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	e := sink.first()
	if e == nil {
		t.Fatalf("event never reached the sink")
	}
	if !e.AdmittedAt.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected admitted_at %v", e.AdmittedAt)
	}
	if !e.DischargedAt.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected discharged_at %v", e.DischargedAt)
	}
	if e.Age != 67 || e.Gender != "F" || e.Outcome != "DISCHARGE" || !e.Rural {
		t.Fatalf("unexpected event %+v", e)
	}
	if !e.Risks.Diabetes || !e.Risks.ChronicKidneyDisease || e.Risks.Smoking {
		t.Fatalf("unexpected risks %+v", e.Risks)
	}
}

func TestIntakeHandleRejectsBadPayloads(t *testing.T) {
	m := &intakeMetrics{}
	b := middleware.NewIntakeBatcher(&captureSink{}, m)
	h := NewAdmissionIntakeHandler("hospital.admissions", b, m)

	if err := h.Handle(context.Background(), []byte(`{not json`)); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if m.count("consumer_unmarshal") != 1 {
		t.Fatalf("expected unmarshal error to be recorded")
	}

	if err := h.Handle(context.Background(), []byte(`{"admitted_at": "soon", "age": 50}`)); err == nil {
		t.Fatalf("expected date error")
	}
	if m.count("consumer_bad_date") != 1 {
		t.Fatalf("expected date error to be recorded")
	}
}

func TestIntakeHandleDropsBadDischargeOnly(t *testing.T) {
	sink := &captureSink{}
	m := &intakeMetrics{}
	b := middleware.NewIntakeBatcher(sink, m, middleware.WithBatchSize(1))
	b.Start(context.Background())
	defer b.Stop(context.Background())

	h := NewAdmissionIntakeHandler("hospital.admissions", b, m)
	msg := []byte(`{"admitted_at": "2024-03-05", "discharged_at": "eventually", "age": 40, "gender": "M", "outcome": "DAMA"}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.first() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	e := sink.first()
	if e == nil {
		t.Fatalf("event never reached the sink")
	}
	if !e.DischargedAt.IsZero() {
		t.Fatalf("expected zero discharge, got %v", e.DischargedAt)
	}
}
