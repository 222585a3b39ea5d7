package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/middleware"
	pkgkafka "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/kafka"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

// AdmissionIntakeHandler consumes admission messages and feeds the batcher.
type AdmissionIntakeHandler struct {
	topic   string
	batcher *middleware.IntakeBatcher
	metrics domrepo.Metrics
}

func NewAdmissionIntakeHandler(topic string, batcher *middleware.IntakeBatcher, metrics domrepo.Metrics) *AdmissionIntakeHandler {
	return &AdmissionIntakeHandler{topic: topic, batcher: batcher, metrics: metrics}
}

func (h *AdmissionIntakeHandler) Topic() string { return h.topic }

// incoming message schema: {admitted_at, discharged_at?, age, gender, outcome, rural, risks}
func (h *AdmissionIntakeHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		AdmittedAt   string          `json:"admitted_at"`
		DischargedAt string          `json:"discharged_at"`
		Age          int             `json:"age"`
		Gender       string          `json:"gender"`
		Outcome      string          `json:"outcome"`
		Rural        bool            `json:"rural"`
		Risks        map[string]bool `json:"risks"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	admitted, ok := util.ParseDate(m.AdmittedAt)
	if !ok {
		h.metrics.RecordError("consumer_bad_date")
		return fmt.Errorf("unparseable admitted_at %q", m.AdmittedAt)
	}
	// E2E latency from admission date to now (approx; intake usually trails
	// the ward system by hours)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(admitted).Seconds())

	e := &models.AdmissionEvent{
		AdmittedAt: admitted,
		Age:        m.Age,
		Gender:     m.Gender,
		Outcome:    m.Outcome,
		Rural:      m.Rural,
		Risks:      models.RiskFlagsFromSet(m.Risks),
	}
	if m.DischargedAt != "" {
		if d, ok := util.ParseDate(m.DischargedAt); ok {
			e.DischargedAt = d
		}
	}

	if err := h.batcher.Add(ctx, e); err != nil {
		h.metrics.RecordError("consumer_enqueue")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AdmissionIntakeHandler)(nil)
