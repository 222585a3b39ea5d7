package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	pkgch "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/clickhouse"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

const admissionColumns = "admitted_at, discharged_at, age, gender, outcome, rural, " +
	"smoking, alcohol, diabetes, hypertension, coronary_artery_disease, cardiomyopathy, chronic_kidney_disease"

// CHAdmissionStore implements AdmissionStore and AdmissionWriter backed by
// ClickHouse. The writer side is fed by the intake stream, the reader side
// serves the analysis endpoints.
type CHAdmissionStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

func NewCHAdmissionStore(ch *pkgch.Client, database string) *CHAdmissionStore {
	if database == "" {
		database = "hospital"
	}
	return &CHAdmissionStore{
		client:   ch,
		db:       ch.DB(),
		database: database,
		table:    database + ".admission_events",
	}
}

// SetLogger injects a structured logger.
func (s *CHAdmissionStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures database and table exist (idempotent).
func (s *CHAdmissionStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            admitted_at DateTime,
            discharged_at DateTime,
            age Int32,
            gender String,
            outcome String,
            rural UInt8,
            smoking UInt8,
            alcohol UInt8,
            diabetes UInt8,
            hypertension UInt8,
            coronary_artery_disease UInt8,
            cardiomyopathy UInt8,
            chronic_kidney_disease UInt8,
            source String
        ) ENGINE=MergeTree ORDER BY admitted_at
    `, s.table)
	return s.client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + s.database,
		ddl,
	})
}

func (s *CHAdmissionStore) Load(ctx context.Context, w domrepo.Window) (models.AdmissionBatch, error) {
	start := time.Now()

	q := fmt.Sprintf("SELECT %s FROM %s", admissionColumns, s.table)
	var (
		conds []string
		args  []interface{}
	)
	if !w.From.IsZero() {
		conds = append(conds, "admitted_at >= ?")
		args = append(args, util.Day(w.From))
	}
	if !w.To.IsZero() {
		// the window names days; take everything before the next midnight
		conds = append(conds, "admitted_at < ?")
		args = append(args, util.Day(w.To).Add(24*time.Hour))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY admitted_at ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_admissions query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return models.AdmissionBatch{}, fmt.Errorf("load admissions: %w", err)
	}
	defer rows.Close()

	batch := models.AdmissionBatch{Events: make([]models.AdmissionEvent, 0, 1024)}
	for rows.Next() {
		var (
			e          models.AdmissionEvent
			discharged time.Time
			age        int32
			flags      [8]uint8
		)
		if err := rows.Scan(&e.AdmittedAt, &discharged, &age, &e.Gender, &e.Outcome,
			&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5], &flags[6], &flags[7]); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse load_admissions scan error",
					applogger.String("table", s.table),
					applogger.Error(err),
				)
			}
			return models.AdmissionBatch{}, fmt.Errorf("scan admission: %w", err)
		}
		e.Age = int(age)
		if discharged.Unix() > 0 {
			e.DischargedAt = discharged
		}
		e.Rural = flags[0] != 0
		e.Risks = models.RiskFlags{
			Smoking:               flags[1] != 0,
			Alcohol:               flags[2] != 0,
			Diabetes:              flags[3] != 0,
			Hypertension:          flags[4] != 0,
			CoronaryArteryDisease: flags[5] != 0,
			Cardiomyopathy:        flags[6] != 0,
			ChronicKidneyDisease:  flags[7] != 0,
		}
		batch.Events = append(batch.Events, e)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_admissions rows error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return models.AdmissionBatch{}, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse load_admissions ok",
			applogger.String("table", s.table),
			applogger.Int("events", len(batch.Events)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return batch, nil
}

func (s *CHAdmissionStore) Store(ctx context.Context, e *models.AdmissionEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (%s, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table, admissionColumns)
	_, err := s.db.ExecContext(ctx, q, admissionArgs(e)...)
	return err
}

func (s *CHAdmissionStore) StoreBatch(ctx context.Context, events []*models.AdmissionEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*14)
		for _, e := range events[start:end] {
			if e == nil || e.AdmittedAt.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, admissionArgs(e)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s, source) VALUES %s", s.table, admissionColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *CHAdmissionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHAdmissionStore) Close() error {
	return nil // connection managed by pkg client
}

func admissionArgs(e *models.AdmissionEvent) []interface{} {
	discharged := e.DischargedAt
	if discharged.IsZero() {
		discharged = time.Unix(0, 0).UTC() // DateTime range starts at the epoch
	}
	return []interface{}{
		e.AdmittedAt,
		discharged,
		int32(e.Age),
		e.Gender,
		e.Outcome,
		b2u(e.Rural),
		b2u(e.Risks.Smoking),
		b2u(e.Risks.Alcohol),
		b2u(e.Risks.Diabetes),
		b2u(e.Risks.Hypertension),
		b2u(e.Risks.CoronaryArteryDisease),
		b2u(e.Risks.Cardiomyopathy),
		b2u(e.Risks.ChronicKidneyDisease),
		"intake",
	}
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var (
	_ domrepo.AdmissionStore  = (*CHAdmissionStore)(nil)
	_ domrepo.AdmissionWriter = (*CHAdmissionStore)(nil)
)
