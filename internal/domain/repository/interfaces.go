package repository

import (
	"context"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

// AdmissionStore provides read access to historical admission events.
type AdmissionStore interface {
	Init(ctx context.Context) error // ensure tables/files, health checks
	Load(ctx context.Context, w Window) (models.AdmissionBatch, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// AdmissionWriter persists admission events arriving from the intake stream.
type AdmissionWriter interface {
	Store(ctx context.Context, e *models.AdmissionEvent) error
	StoreBatch(ctx context.Context, events []*models.AdmissionEvent) error
}

type Metrics interface {
	RecordEventsIngested(backend, source string, n int)
	RecordError(kind string)
	RecordLastDailyCount(source string, count float64)
	RecordLatency(op string, seconds float64)
}
