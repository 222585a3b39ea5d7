package models

import "fmt"

// InsufficientDataError reports a series too short for the requested
// analysis. Handlers map it to 422.
type InsufficientDataError struct {
	Op   string // operation that ran short: "aggregate", "train", ...
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d usable rows, got %d", e.Op, e.Need, e.Got)
}

// InvalidParameterError reports a caller-supplied parameter outside its
// domain. Handlers map it to 400.
type InvalidParameterError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

// ModelFitError reports a candidate regressor (or every candidate) failing
// to fit. Individual failures are recovered; only the all-failed case
// escalates to callers.
type ModelFitError struct {
	Family string
	Err    error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model fit failed for %s: %v", e.Family, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }
