package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewWritesStructuredJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("store ready", String("backend", "clickhouse"), Int("rows", 42))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, data)
	}
	if line["message"] != "store ready" || line["level"] != "info" {
		t.Fatalf("line = %v", line)
	}
	if line["backend"] != "clickhouse" || line["rows"] != float64(42) {
		t.Fatalf("fields missing: %v", line)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("noise")
	l.Info("signal")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 1 {
		t.Fatalf("expected 1 line, got %d: %s", got, data)
	}
	if strings.Contains(string(data), "noise") {
		t.Fatalf("debug line leaked: %s", data)
	}
}

func TestErrorEventsReachCollector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.AddCollector(&CollectorConfig{MaxEntries: 8, MaxAge: time.Hour})
	defer l.Collector().Close()

	for i := 0; i < 3; i++ {
		l.Error("csv row rejected", String("reason", "bad date"), Error(fmt.Errorf("parse")))
	}

	events := l.Collector().Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 aggregated event, got %d", len(events))
	}
	ev := events[0]
	if ev.Count != 3 || ev.Level != "error" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Fields["reason"] != "bad date" || ev.Fields["error"] != "parse" {
		t.Fatalf("fields = %v", ev.Fields)
	}
	if !strings.Contains(ev.Caller, "logger_test.go:") {
		t.Fatalf("caller = %q", ev.Caller)
	}
}

func TestFieldKeyValueRendering(t *testing.T) {
	if k, v := Duration("took", 1500*time.Millisecond).keyValue(); k != "took" || v != "1.5s" {
		t.Fatalf("duration = %q %v", k, v)
	}
	if k, v := Error(nil).keyValue(); k != "error" || v != "<nil>" {
		t.Fatalf("nil error = %q %v", k, v)
	}
	if _, v := Int64("n", 7).keyValue(); v != int64(7) {
		t.Fatalf("int64 = %v", v)
	}
	if _, v := String("s", "x").keyValue(); v != "x" {
		t.Fatalf("string = %v", v)
	}
}

func TestShortPath(t *testing.T) {
	got := shortPath("/build/src/internal/services/forecast/model.go")
	if got != "services/forecast/model.go" {
		t.Fatalf("shortPath = %q", got)
	}
	if got := shortPath("a/b.go"); got != "a/b.go" {
		t.Fatalf("short input = %q", got)
	}
}
