package analytics

import (
	"context"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	domsvc "github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/service"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/util"
)

// Summarizer derives the patient-level cohort report: demographics, outcomes,
// risk-factor prevalence, the rural/urban split and the temporal spread of
// raw admission events. Unlike the forecasting pipeline it never aggregates
// to a daily series.
type Summarizer struct{}

func NewSummarizer() *Summarizer { return &Summarizer{} }

func (s *Summarizer) Summarize(ctx context.Context, batch models.AdmissionBatch) (*models.CohortSummary, error) {
	events := batch.Events
	if len(events) == 0 {
		return nil, &models.InsufficientDataError{Op: "cohort", Need: 1, Got: 0}
	}

	sum := &models.CohortSummary{
		TotalAdmissions:      len(events),
		AgeDistribution:      map[string]int{},
		GenderDistribution:   map[string]int{},
		OutcomeDistribution:  map[string]int{},
		RiskFactorPrevalence: map[string]models.RiskPrevalence{},
		MultipleRiskFactors:  map[int]int{},
		LocationDistribution: map[string]int{localityRural: 0, localityUrban: 0},
		LocationOutcomes:     map[string]map[string]int{localityRural: {}, localityUrban: {}},
		LocationRiskFactors:  map[string]map[string]int{localityRural: {}, localityUrban: {}},
		MonthlyPatterns:      map[int]int{},
		DailyPatterns:        map[string]int{},
		YearlyTrends:         map[int]int{},
		SeasonalPatterns:     map[string]int{},
		DroppedRecords:       batch.Dropped,
	}

	var (
		ageSum, ageN int
		losSum       float64
		losN         int
		start, end   time.Time
	)
	// every known factor appears in the report, zero-prevalence included
	riskCounts := map[string]int{}
	for name := range (models.RiskFlags{}).Set() {
		riskCounts[name] = 0
	}

	for _, e := range events {
		loc := localityOf(e.Rural)
		sum.LocationDistribution[loc]++
		sum.AgeDistribution[ageGroupOf(e.Age)]++
		if e.Age > 0 {
			ageSum += e.Age
			ageN++
		}
		if e.Gender != "" {
			sum.GenderDistribution[e.Gender]++
		}
		if e.Outcome != "" {
			sum.OutcomeDistribution[e.Outcome]++
			sum.LocationOutcomes[loc][e.Outcome]++
		}

		if !e.DischargedAt.IsZero() && !e.AdmittedAt.IsZero() {
			losSum += e.StayDuration().Hours() / 24
			losN++
		}

		active := 0
		for name, on := range e.Risks.Set() {
			if on {
				riskCounts[name]++
				sum.LocationRiskFactors[loc][name]++
				active++
			}
		}
		sum.MultipleRiskFactors[active]++

		if e.AdmittedAt.IsZero() {
			continue
		}
		if start.IsZero() || e.AdmittedAt.Before(start) {
			start = e.AdmittedAt
		}
		if e.AdmittedAt.After(end) {
			end = e.AdmittedAt
		}
		sum.MonthlyPatterns[int(e.AdmittedAt.Month())]++
		sum.DailyPatterns[e.AdmittedAt.Weekday().String()]++
		sum.YearlyTrends[e.AdmittedAt.Year()]++
		sum.SeasonalPatterns[seasonName(e.AdmittedAt.Month())]++
	}

	if ageN > 0 {
		sum.AverageAge = float64(ageSum) / float64(ageN)
	}
	if losN > 0 {
		sum.AverageLengthOfStay = losSum / float64(losN)
	}
	for name, count := range riskCounts {
		sum.RiskFactorPrevalence[name] = models.RiskPrevalence{
			Count:      count,
			Percentage: float64(count) / float64(len(events)) * 100,
		}
	}
	sum.DateRange.Start = models.Date(util.Day(start))
	sum.DateRange.End = models.Date(util.Day(end))
	return sum, nil
}

var _ domsvc.CohortAnalyzer = (*Summarizer)(nil)
