package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

// Column headers as they appear in hospital admission exports. The trailing
// space in the smoking header is present in the source files.
const (
	colAdmitted   = "D.O.A"
	colDischarged = "D.O.D"
	colAge        = "AGE"
	colGender     = "GENDER"
	colRural      = "RURAL"
	colOutcome    = "OUTCOME"
	colSmoking    = "SMOKING "
	colAlcohol    = "ALCOHOL"
	colDiabetes   = "DM"
	colHTN        = "HTN"
	colCAD        = "CAD"
	colPriorCMP   = "PRIOR CMP"
	colCKD        = "CKD"
)

// CSVAdmissionStore implements AdmissionStore over an admission CSV export.
// Rows with an unparseable admission date are dropped and counted, never fatal.
type CSVAdmissionStore struct {
	path   string
	layout string
	l      *applogger.Logger
}

func NewCSVAdmissionStore(path, dateLayout string) *CSVAdmissionStore {
	if dateLayout == "" {
		dateLayout = "02/01/2006"
	}
	return &CSVAdmissionStore{path: path, layout: dateLayout}
}

// SetLogger injects a structured logger.
func (s *CSVAdmissionStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init fails fast when the file is unreadable or the header lacks the
// admission date column.
func (s *CSVAdmissionStore) Init(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open admission csv: %w", err)
	}
	defer f.Close()

	head, err := csv.NewReader(f).Read()
	if err != nil {
		return fmt.Errorf("read admission csv header: %w", err)
	}
	for _, name := range head {
		if name == colAdmitted {
			return nil
		}
	}
	return fmt.Errorf("admission csv %s: missing %q column", s.path, colAdmitted)
}

func (s *CSVAdmissionStore) Load(ctx context.Context, w domrepo.Window) (models.AdmissionBatch, error) {
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		if s.l != nil {
			s.l.Error("admission csv open error",
				applogger.String("path", s.path),
				applogger.Error(err),
			)
		}
		return models.AdmissionBatch{}, fmt.Errorf("open admission csv: %w", err)
	}
	defer f.Close()

	batch, err := s.load(ctx, f, w)
	if err != nil {
		if s.l != nil {
			s.l.Error("admission csv load error",
				applogger.String("path", s.path),
				applogger.Error(err),
			)
		}
		return models.AdmissionBatch{}, err
	}

	if s.l != nil {
		s.l.Info("admission csv load ok",
			applogger.String("path", s.path),
			applogger.Int("events", len(batch.Events)),
			applogger.Int("dropped", batch.Dropped),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return batch, nil
}

func (s *CSVAdmissionStore) load(ctx context.Context, r io.Reader, w domrepo.Window) (models.AdmissionBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if err != nil {
		return models.AdmissionBatch{}, fmt.Errorf("read admission csv header: %w", err)
	}

	// Positions of the columns we use; exports shuffle column order between
	// revisions, so the header decides.
	cx := make(map[string]int, len(head))
	for i, name := range head {
		cx[name] = i
	}
	col := func(name string) int {
		if i, ok := cx[name]; ok {
			return i
		}
		return -1
	}

	admi := col(colAdmitted)
	if admi < 0 {
		return models.AdmissionBatch{}, fmt.Errorf("admission csv %s: missing %q column", s.path, colAdmitted)
	}
	disi := col(colDischarged)
	agei := col(colAge)
	geni := col(colGender)
	ruri := col(colRural)
	outi := col(colOutcome)
	smoi := col(colSmoking)
	alci := col(colAlcohol)
	dmi := col(colDiabetes)
	htni := col(colHTN)
	cadi := col(colCAD)
	cmpi := col(colPriorCMP)
	ckdi := col(colCKD)

	var batch models.AdmissionBatch
	for line := 0; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return models.AdmissionBatch{}, err
			}
		}

		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			batch.Dropped++
			continue
		}

		admitted, err := time.Parse(s.layout, field(row, admi))
		if err != nil {
			batch.Dropped++
			continue
		}
		admitted = util.Day(admitted)
		if !w.Contains(admitted) {
			continue
		}

		e := models.AdmissionEvent{
			Age:        util.ParseIntDefault(field(row, agei), 0),
			Gender:     strings.ToUpper(field(row, geni)),
			Outcome:    strings.ToUpper(field(row, outi)),
			AdmittedAt: admitted,
			Rural:      strings.EqualFold(field(row, ruri), "R"),
			Risks: models.RiskFlags{
				Smoking:               util.ParseFlag(field(row, smoi)),
				Alcohol:               util.ParseFlag(field(row, alci)),
				Diabetes:              util.ParseFlag(field(row, dmi)),
				Hypertension:          util.ParseFlag(field(row, htni)),
				CoronaryArteryDisease: util.ParseFlag(field(row, cadi)),
				Cardiomyopathy:        util.ParseFlag(field(row, cmpi)),
				ChronicKidneyDisease:  util.ParseFlag(field(row, ckdi)),
			},
		}
		// discharge date is optional; a bad value loses the stay length only
		if v := field(row, disi); v != "" {
			if t, err := time.Parse(s.layout, v); err == nil {
				e.DischargedAt = util.Day(t)
			}
		}
		batch.Events = append(batch.Events, e)
	}
	return batch, nil
}

func (s *CSVAdmissionStore) Health(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *CSVAdmissionStore) Close() error { return nil }

// field returns the trimmed cell value, tolerating ragged rows and columns
// missing from the header.
func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var _ domrepo.AdmissionStore = (*CSVAdmissionStore)(nil)
