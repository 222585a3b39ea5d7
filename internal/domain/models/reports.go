package models

import (
	"time"
)

// Date serializes as plain YYYY-MM-DD, the format report consumers expect.
type Date time.Time

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

// ForecastPoint is the predicted admission count for one future date.
type ForecastPoint struct {
	Date                Date `json:"date"`
	PredictedAdmissions int  `json:"predicted_admissions"`
}

// CandidateMetrics holds the hold-out scores of one candidate regressor.
type CandidateMetrics struct {
	Model string  `json:"model"`
	MAE   float64 `json:"mae"`
	MSE   float64 `json:"mse"`
	R2    float64 `json:"r2"`
}

// FeatureImportance is one entry of the selected model's importance ranking.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ForecastResult is the full output of a train-and-forecast run. It carries
// only primitives and never the trained model itself.
type ForecastResult struct {
	BestModel         string              `json:"best_model"`
	HorizonDays       int                 `json:"horizon_days"`
	ModelMetrics      []CandidateMetrics  `json:"model_metrics"`
	FuturePredictions []ForecastPoint     `json:"future_predictions"`
	FeatureImportance []FeatureImportance `json:"feature_importance"`
	// MethodNote documents that unobservable lag/rolling inputs are held at
	// the trailing 30-day mean, so uncertainty does not grow over the horizon.
	MethodNote  string    `json:"method_note"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BusyPeriodReport classifies historical (and optionally forecast) days
// against a percentile-derived threshold. Breakdown maps are keyed by month
// number (1-12), weekday index (0=Monday) and season code (0=Winter).
type BusyPeriodReport struct {
	ThresholdPercentile      float64         `json:"threshold_percentile"`
	BusyThreshold            float64         `json:"busy_threshold"`
	BusyDayCount             int             `json:"busy_day_count"`
	BusyDayPercentage        float64         `json:"busy_day_percentage"`
	AverageBusyDayAdmissions float64         `json:"average_busy_day_admissions"`
	BusyMonths               map[int]int     `json:"busy_months"`
	BusyDaysOfWeek           map[int]int     `json:"busy_days_of_week"`
	BusySeasons              map[int]int     `json:"busy_seasons"`
	FutureBusyPeriods        []ForecastPoint `json:"future_busy_periods,omitempty"`
	PredictedBusyDays        *int            `json:"predicted_busy_days,omitempty"`
}

// DescriptiveStats summarizes the daily count distribution.
type DescriptiveStats struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"25%"`
	P50   float64 `json:"50%"`
	P75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// PeakRequirements carries integer staffing targets; admissions are discrete.
type PeakRequirements struct {
	MaxDailyAdmissions int `json:"max_daily_admissions"`
	Percentile95       int `json:"percentile_95"`
	Percentile90       int `json:"percentile_90"`
	Percentile75       int `json:"percentile_75"`
}

// GroupPattern holds grouped mean/max/std of the daily count, keyed by month
// number or weekday index.
type GroupPattern struct {
	Mean map[int]float64 `json:"mean"`
	Max  map[int]float64 `json:"max"`
	Std  map[int]float64 `json:"std"`
}

// CapacityReport is the model-free statistical summary used for staffing and
// capacity planning.
type CapacityReport struct {
	DailyAdmissionStats DescriptiveStats `json:"daily_admission_stats"`
	PeakRequirements    PeakRequirements `json:"peak_requirements"`
	MonthlyPatterns     GroupPattern     `json:"monthly_patterns"`
	DayOfWeekPatterns   GroupPattern     `json:"day_of_week_patterns"`
}

// RiskPrevalence is the occurrence of one risk factor across the cohort.
type RiskPrevalence struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CohortSummary describes the loaded admission cohort: demographics,
// outcomes, risk factors, rural/urban split and temporal distribution of
// raw events.
type CohortSummary struct {
	TotalAdmissions int `json:"total_admissions"`
	DateRange       struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	} `json:"date_range"`
	AverageAge           float64                   `json:"average_age"`
	AverageLengthOfStay  float64                   `json:"average_length_of_stay_days"`
	AgeDistribution      map[string]int            `json:"age_distribution"`
	GenderDistribution   map[string]int            `json:"gender_distribution"`
	OutcomeDistribution  map[string]int            `json:"outcome_distribution"`
	RiskFactorPrevalence map[string]RiskPrevalence `json:"risk_factor_prevalence"`
	MultipleRiskFactors  map[int]int               `json:"multiple_risk_factors"`
	LocationDistribution map[string]int            `json:"location_distribution"`
	LocationOutcomes     map[string]map[string]int `json:"location_vs_outcome"`
	LocationRiskFactors  map[string]map[string]int `json:"location_vs_risk"`
	MonthlyPatterns      map[int]int               `json:"monthly_patterns"`
	DailyPatterns        map[string]int            `json:"daily_patterns"`
	YearlyTrends         map[int]int               `json:"yearly_trends"`
	SeasonalPatterns     map[string]int            `json:"seasonal_patterns"`
	DroppedRecords       int                       `json:"dropped_records"`
}

// AdmissionsAnalysis bundles every report a full analysis run produces.
// Forecast-dependent sections are nil when modeling was not possible.
type AdmissionsAnalysis struct {
	Forecast    *ForecastResult   `json:"forecast,omitempty"`
	BusyPeriods *BusyPeriodReport `json:"busy_periods,omitempty"`
	Capacity    *CapacityReport   `json:"capacity"`
	Summary     *CohortSummary    `json:"summary,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}
