package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	domrepo "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/repository"
)

const sampleCSV = `SNO,D.O.A,D.O.D,AGE,GENDER,RURAL,OUTCOME,SMOKING ,ALCOHOL,DM,HTN,CAD,PRIOR CMP,CKD
1,02/01/2024,06/01/2024,72,M,R,DISCHARGE,0,0,1,1,0,0,0
2,03/01/2024,,29,f,U,discharge,1,0,0,0,0,0,0
3,not-a-date,,40,M,U,EXPIRY,0,0,0,0,0,0,0
4,05/01/2024,05/01/2024,55,F,R,DAMA,0,1,0,0,1,1,1
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admissions.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCSVLoad(t *testing.T) {
	store := NewCSVAdmissionStore(writeFixture(t, sampleCSV), "")
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	batch, err := store.Load(context.Background(), domrepo.Window{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(batch.Events) != 3 || batch.Dropped != 1 {
		t.Fatalf("got %d events, %d dropped", len(batch.Events), batch.Dropped)
	}

	first := batch.Events[0]
	if first.Age != 72 || first.Gender != "M" || !first.Rural {
		t.Fatalf("first event = %+v", first)
	}
	want := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	if !first.AdmittedAt.Equal(want) {
		t.Fatalf("admitted at %v, want %v", first.AdmittedAt, want)
	}
	if !first.Risks.Diabetes || !first.Risks.Hypertension || first.Risks.Smoking {
		t.Fatalf("first risks = %+v", first.Risks)
	}
	if got := first.StayDuration().Hours() / 24; got != 4 {
		t.Fatalf("stay = %v days", got)
	}

	second := batch.Events[1]
	if second.Gender != "F" || second.Outcome != "DISCHARGE" {
		t.Fatalf("lowercase cells not normalized: %+v", second)
	}
	if !second.DischargedAt.IsZero() {
		t.Fatalf("missing discharge parsed as %v", second.DischargedAt)
	}

	third := batch.Events[2]
	if !third.Risks.Alcohol || !third.Risks.CoronaryArteryDisease ||
		!third.Risks.Cardiomyopathy || !third.Risks.ChronicKidneyDisease {
		t.Fatalf("third risks = %+v", third.Risks)
	}
}

func TestCSVLoadWindow(t *testing.T) {
	store := NewCSVAdmissionStore(writeFixture(t, sampleCSV), "02/01/2006")

	from := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	batch, err := store.Load(context.Background(), domrepo.WindowBetween(from, time.Time{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(batch.Events) != 2 {
		t.Fatalf("window kept %d events", len(batch.Events))
	}
	for _, e := range batch.Events {
		if e.AdmittedAt.Before(from) {
			t.Fatalf("event %v outside window", e.AdmittedAt)
		}
	}
	// rows without a parseable date cannot be window-filtered, still counted
	if batch.Dropped != 1 {
		t.Fatalf("dropped = %d", batch.Dropped)
	}
}

func TestCSVLoadShuffledColumns(t *testing.T) {
	shuffled := `AGE,OUTCOME,D.O.A,GENDER
80,EXPIRY,10/03/2023,F
`
	store := NewCSVAdmissionStore(writeFixture(t, shuffled), "")
	batch, err := store.Load(context.Background(), domrepo.Window{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(batch.Events) != 1 {
		t.Fatalf("got %d events", len(batch.Events))
	}
	e := batch.Events[0]
	if e.Age != 80 || e.Outcome != "EXPIRY" || e.AdmittedAt.Month() != time.March {
		t.Fatalf("event = %+v", e)
	}
	// columns absent from the header read as unset
	if e.Rural || e.Risks.ChronicKidneyDisease {
		t.Fatalf("missing columns not defaulted: %+v", e)
	}
}

func TestCSVInitMissingDateColumn(t *testing.T) {
	store := NewCSVAdmissionStore(writeFixture(t, "AGE,GENDER\n50,M\n"), "")
	if err := store.Init(context.Background()); err == nil {
		t.Fatal("expected init error for missing admission date column")
	}
	if _, err := store.Load(context.Background(), domrepo.Window{}); err == nil {
		t.Fatal("expected load error for missing admission date column")
	}
}

func TestCSVLoadCancelled(t *testing.T) {
	store := NewCSVAdmissionStore(writeFixture(t, sampleCSV), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Load(ctx, domrepo.Window{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestCSVHealthMissingFile(t *testing.T) {
	store := NewCSVAdmissionStore(filepath.Join(t.TempDir(), "nope.csv"), "")
	if err := store.Health(context.Background()); err == nil {
		t.Fatal("expected health error for missing file")
	}
}
