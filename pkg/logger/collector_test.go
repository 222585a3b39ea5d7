package logger

import (
	"testing"
	"time"
)

func newTestCollector(maxEntries int) *DiagnosticsCollector {
	return NewDiagnosticsCollector(&CollectorConfig{MaxEntries: maxEntries, MaxAge: time.Hour})
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	c := newTestCollector(16)
	defer c.Close()

	fields := map[string]interface{}{"row": "1987-13-01"}
	c.Add("warn", "bad admission date", fields, "repository/csv.go:80")
	c.Add("warn", "bad admission date", fields, "repository/csv.go:80")

	events := c.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(events))
	}
	if events[0].Count != 2 {
		t.Fatalf("count = %d, want 2", events[0].Count)
	}
	if !events[0].LastSeen.After(events[0].FirstSeen) && !events[0].LastSeen.Equal(events[0].FirstSeen) {
		t.Fatalf("seen range inverted: %+v", events[0])
	}
}

func TestCollectorDistinguishesCallers(t *testing.T) {
	c := newTestCollector(16)
	defer c.Close()

	c.Add("error", "store unreachable", nil, "repository/clickhouse.go:40")
	c.Add("error", "store unreachable", nil, "handler/api.go:120")

	if got := len(c.Snapshot()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestCollectorEvictsOldestWhenFull(t *testing.T) {
	c := newTestCollector(2)
	defer c.Close()

	c.Add("warn", "first", nil, "a.go:1")
	time.Sleep(2 * time.Millisecond)
	c.Add("warn", "second", nil, "a.go:2")
	time.Sleep(2 * time.Millisecond)
	c.Add("warn", "third", nil, "a.go:3")

	events := c.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Message == "first" {
			t.Fatal("oldest entry survived eviction")
		}
	}
}

func TestCollectorSnapshotMostRecentFirst(t *testing.T) {
	c := newTestCollector(16)
	defer c.Close()

	c.Add("warn", "older", nil, "a.go:1")
	time.Sleep(2 * time.Millisecond)
	c.Add("warn", "newer", nil, "a.go:2")

	events := c.Snapshot()
	if len(events) != 2 || events[0].Message != "newer" {
		t.Fatalf("order wrong: %+v", events)
	}
}

func TestCollectorDefaults(t *testing.T) {
	c := NewDiagnosticsCollector(&CollectorConfig{})
	defer c.Close()

	if c.config.MaxEntries != 256 || c.config.MaxAge != 24*time.Hour {
		t.Fatalf("defaults = %+v", c.config)
	}
}
