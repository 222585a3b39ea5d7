package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != nil || got != "v" {
		t.Fatalf("get: %q (%v)", got, err)
	}

	if err := mc.Get(ctx, "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss, got %v", err)
	}
}

func TestMemoryCacheTypedGet(t *testing.T) {
	type report struct {
		Kind string `json:"kind"`
		Days int    `json:"days"`
	}
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "r", report{Kind: "forecast", Days: 30}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got report
	if err := mc.Get(ctx, "r", &got); err != nil {
		t.Fatalf("typed get: %v", err)
	}
	if got.Kind != "forecast" || got.Days != 30 {
		t.Errorf("round trip lost fields: %+v", got)
	}

	var s string
	if err := mc.Get(ctx, "r", &s); err == nil {
		t.Error("string read of a struct value should fail")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "short", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "short", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expiry miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)

	// touch "a" so "b" becomes the eviction candidate
	var v string
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Fatalf("get a: %v", err)
	}
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "c", "3", time.Minute)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Errorf("a should survive, got %v", err)
	}
	if err := mc.Get(ctx, "c", &v); err != nil {
		t.Errorf("c should be present, got %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "report:forecast:1", "a", time.Minute)
	mc.Set(ctx, "report:forecast:2", "b", time.Minute)
	mc.Set(ctx, "report:busy:1", "c", time.Minute)

	if err := mc.DeleteByPattern(ctx, "report:forecast:*"); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}

	var v string
	if err := mc.Get(ctx, "report:forecast:1", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("forecast:1 should be gone, got %v", err)
	}
	if err := mc.Get(ctx, "report:busy:1", &v); err != nil {
		t.Errorf("busy:1 should survive, got %v", err)
	}
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	mc := NewMemoryCache()
	if err := mc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mc.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	got := GenerateKeyWithParams("fp", 30, 75.5, "clickhouse")
	if got != "fp:30:75.5:clickhouse" {
		t.Errorf("got %q", got)
	}
	if GenerateKeyWithParams("fp") != "fp" {
		t.Error("no params should leave the prefix alone")
	}
}

func TestHashKeyShape(t *testing.T) {
	h := HashKey("report:forecast:anything")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h == HashKey("report:forecast:other") {
		t.Error("different keys should not collide")
	}
}

func TestFingerprintStability(t *testing.T) {
	base := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{base, base.AddDate(0, 0, 1)}
	counts := []int{5, 7}

	a := Fingerprint(dates, counts)
	b := Fingerprint([]time.Time{base, base.AddDate(0, 0, 1)}, []int{5, 7})
	if a != b {
		t.Error("identical series should share a fingerprint")
	}
	if c := Fingerprint(dates, []int{5, 8}); c == a {
		t.Error("changed counts should change the fingerprint")
	}
}
