package models

import "time"

// Outcome values as they appear in admission exports.
const (
	OutcomeDischarge = "DISCHARGE"
	OutcomeExpiry    = "EXPIRY"
	OutcomeDAMA      = "DAMA" // discharged against medical advice
)

// AdmissionEvent is one raw admission record. Immutable once loaded; the
// forecasting core only reads AdmittedAt, the cohort summaries read the rest.
type AdmissionEvent struct {
	Age          int
	Gender       string // "M" or "F"
	Outcome      string
	AdmittedAt   time.Time
	DischargedAt time.Time
	Rural        bool
	Risks        RiskFlags
}

// RiskFlags carries the boolean condition indicators of an admission record.
type RiskFlags struct {
	Smoking               bool
	Alcohol               bool
	Diabetes              bool
	Hypertension          bool
	CoronaryArteryDisease bool
	Cardiomyopathy        bool
	ChronicKidneyDisease  bool
}

// Set returns the flags keyed by their canonical report names.
func (r RiskFlags) Set() map[string]bool {
	return map[string]bool{
		"smoking":                 r.Smoking,
		"alcohol":                 r.Alcohol,
		"diabetes":                r.Diabetes,
		"hypertension":            r.Hypertension,
		"coronary_artery_disease": r.CoronaryArteryDisease,
		"cardiomyopathy":          r.Cardiomyopathy,
		"chronic_kidney_disease":  r.ChronicKidneyDisease,
	}
}

// RiskFlagsFromSet is the inverse of Set. Unknown keys are ignored so intake
// payloads can carry conditions this model does not track yet.
func RiskFlagsFromSet(set map[string]bool) RiskFlags {
	return RiskFlags{
		Smoking:               set["smoking"],
		Alcohol:               set["alcohol"],
		Diabetes:              set["diabetes"],
		Hypertension:          set["hypertension"],
		CoronaryArteryDisease: set["coronary_artery_disease"],
		Cardiomyopathy:        set["cardiomyopathy"],
		ChronicKidneyDisease:  set["chronic_kidney_disease"],
	}
}

// StayDuration is the length of stay, zero when the discharge timestamp is
// missing or precedes the admission.
func (e AdmissionEvent) StayDuration() time.Duration {
	if e.DischargedAt.IsZero() || e.DischargedAt.Before(e.AdmittedAt) {
		return 0
	}
	return e.DischargedAt.Sub(e.AdmittedAt)
}

// AdmissionBatch is the result of one store load: the parseable events plus
// the number of source rows dropped for missing or malformed fields.
type AdmissionBatch struct {
	Events  []AdmissionEvent
	Dropped int
}
