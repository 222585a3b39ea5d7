package models

// Requests for admissions HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Horizon int    `query:"horizon" json:"horizon" default:"30" validate:"gte=1,lte=365"`
	From    string `query:"from" json:"from" validate:"omitempty"`
	To      string `query:"to" json:"to" validate:"omitempty"`
}

type BusyPeriodsRequest struct {
	Percentile   float64 `query:"percentile" json:"percentile" default:"75" validate:"gt=0,lte=100"`
	WithForecast *bool   `query:"with_forecast" json:"with_forecast" default:"true"`
	From         string  `query:"from" json:"from" validate:"omitempty"`
	To           string  `query:"to" json:"to" validate:"omitempty"`
}

type CapacityRequest struct {
	From string `query:"from" json:"from" validate:"omitempty"`
	To   string `query:"to" json:"to" validate:"omitempty"`
}

type SummaryRequest struct {
	From string `query:"from" json:"from" validate:"omitempty"`
	To   string `query:"to" json:"to" validate:"omitempty"`
}

type ExportRequest struct {
	Horizon    int     `json:"horizon" default:"30" validate:"gte=1,lte=365"`
	Percentile float64 `json:"percentile" default:"75" validate:"gt=0,lte=100"`
	Prefix     string  `json:"prefix" default:"admission_analysis" validate:"omitempty,max=64"`
	From       string  `json:"from" validate:"omitempty"`
	To         string  `json:"to" validate:"omitempty"`
}
