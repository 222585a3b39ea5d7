package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

type stubModel struct {
	val    float64
	inputs [][]float64
}

func (s *stubModel) Family() Family { return Family("stub") }

func (s *stubModel) Predict(x []float64) float64 {
	row := make([]float64, len(x))
	copy(row, x)
	s.inputs = append(s.inputs, row)
	return s.val
}

func (s *stubModel) Importances() map[string]float64 { return nil }

func TestProjectContiguousDatesAndClamping(t *testing.T) {
	series := alternatingSeries(t, 120)
	stub := &stubModel{val: -3.7}

	points := project(stub, series, 5)
	if len(points) != 5 {
		t.Fatalf("points = %d, want 5", len(points))
	}
	last := series[len(series)-1].Date
	for i, p := range points {
		want := last.AddDate(0, 0, i+1)
		if !p.Date.Time().Equal(want) {
			t.Fatalf("point %d date = %s, want %s", i, p.Date, want.Format("2006-01-02"))
		}
		if p.PredictedAdmissions != 0 {
			t.Fatalf("negative prediction must clamp to 0, got %d", p.PredictedAdmissions)
		}
	}

	// trailing 30 observed days of the alternating series average to 15
	for _, in := range stub.inputs {
		for j := 6; j < len(in); j++ {
			if in[j] != 15 {
				t.Fatalf("lag/rolling slot %d = %v, want trailing mean 15", j, in[j])
			}
		}
	}
}

func TestEngineRejectsNonPositiveHorizon(t *testing.T) {
	eng := NewEngine(Config{}, testLogger(t))
	series := alternatingSeries(t, 120)

	for _, h := range []int{0, -7} {
		_, err := eng.Forecast(context.Background(), series, h)
		var ipe *models.InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Fatalf("horizon %d: expected InvalidParameterError, got %v", h, err)
		}
		if ipe.Param != "horizon" {
			t.Fatalf("param = %s", ipe.Param)
		}
	}
}

func TestEngineForecastEndToEnd(t *testing.T) {
	eng := NewEngine(Config{ConcurrentFit: true}, testLogger(t))
	series := alternatingSeries(t, 120)

	res, err := eng.Forecast(context.Background(), series, 7)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if res.BestModel == "" || res.HorizonDays != 7 {
		t.Fatalf("result header: %+v", res)
	}
	if len(res.ModelMetrics) == 0 {
		t.Fatalf("empty metrics table")
	}
	if len(res.FuturePredictions) != 7 {
		t.Fatalf("points = %d, want 7", len(res.FuturePredictions))
	}
	prev := series[len(series)-1].Date
	for _, p := range res.FuturePredictions {
		if !p.Date.Time().Equal(prev.AddDate(0, 0, 1)) {
			t.Fatalf("dates not contiguous at %s", p.Date)
		}
		prev = p.Date.Time()
		if p.PredictedAdmissions < 0 {
			t.Fatalf("negative predicted count %d", p.PredictedAdmissions)
		}
	}
	if res.MethodNote == "" {
		t.Fatalf("method note missing")
	}
	if res.GeneratedAt.IsZero() {
		t.Fatalf("generated_at missing")
	}

	// the engine must not mutate the caller's rows
	for i := range series {
		if series[i].Lags != nil || series[i].Rolls != nil {
			t.Fatalf("caller series mutated at row %d", i)
		}
	}
}

func TestEngineInsufficientDataSurfaces(t *testing.T) {
	eng := NewEngine(Config{}, testLogger(t))
	series := alternatingSeries(t, 45)

	_, err := eng.Forecast(context.Background(), series, 7)
	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}
