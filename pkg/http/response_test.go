package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var env APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestDataResponseMirrorsStatus(t *testing.T) {
	c, rec := newTestContext(t, "/")
	if err := DataResponse(c, http.StatusCreated, map[string]int{"n": 3}); err != nil {
		t.Fatalf("DataResponse: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("wire status = %d, want 201", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusCreated || env.Message != "Created" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	c, rec := newTestContext(t, "/")
	appErr := UnprocessableErrorf("need %d days", 14).WithError(fmt.Errorf("short history"))
	wrapped := fmt.Errorf("analyze: %w", appErr)

	if err := AppErrorResponse(c, wrapped); err != nil {
		t.Fatalf("AppErrorResponse: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wire status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_UNPROCESSABLE") {
		t.Fatalf("body missing error code: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "short history") {
		t.Fatalf("wrapped cause leaked into response: %s", rec.Body.String())
	}
}

func TestAppErrorResponseOpaqueFallback(t *testing.T) {
	c, rec := newTestContext(t, "/")
	if err := AppErrorResponse(c, fmt.Errorf("connection refused")); err != nil {
		t.Fatalf("AppErrorResponse: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("wire status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestAppErrorMessageIncludesCause(t *testing.T) {
	err := BadRequestError("bad horizon").WithError(fmt.Errorf("parse \"x\""))
	if got := err.Error(); got != "bad horizon: parse \"x\"" {
		t.Fatalf("Error() = %q", got)
	}
	if err.Unwrap() == nil {
		t.Fatal("Unwrap returned nil")
	}
}

type horizonRequest struct {
	Horizon int     `query:"horizon" default:"30" validate:"gte=1,lte=365"`
	Pct     float64 `query:"percentile" default:"75" validate:"gt=0,lte=100"`
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	c, _ := newTestContext(t, "/forecast")
	var req horizonRequest
	if bad := ReadAndValidateRequest(c, &req); bad != nil {
		t.Fatalf("unexpected validation failure: %+v", bad)
	}
	if req.Horizon != 30 || req.Pct != 75 {
		t.Fatalf("defaults not applied: %+v", req)
	}
}

func TestReadAndValidateRejectsOutOfRange(t *testing.T) {
	c, _ := newTestContext(t, "/forecast?horizon=900")
	var req horizonRequest
	bad := ReadAndValidateRequest(c, &req)
	if bad == nil {
		t.Fatal("expected validation failure")
	}
	errs, ok := bad.([]ValidationError)
	if !ok || len(errs) != 1 {
		t.Fatalf("bad = %#v", bad)
	}
	if errs[0].Code != "ERR_LTE" || errs[0].Field != "Horizon" {
		t.Fatalf("errs[0] = %+v", errs[0])
	}
	if errs[0].Params["max"] != "365" {
		t.Fatalf("params = %+v", errs[0].Params)
	}
}

func TestReadAndValidateRejectsMalformedInput(t *testing.T) {
	c, _ := newTestContext(t, "/forecast?horizon=soon")
	var req horizonRequest
	bad := ReadAndValidateRequest(c, &req)
	if bad == nil {
		t.Fatal("expected bind failure")
	}
	errs, ok := bad.([]ValidationError)
	if !ok || len(errs) == 0 || errs[0].Code != "ERR_UNKNOWN" {
		t.Fatalf("bad = %#v", bad)
	}
}
