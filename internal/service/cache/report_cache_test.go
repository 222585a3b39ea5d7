package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	pkgcache "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/cache"
)

func TestReportCacheRoundTrip(t *testing.T) {
	svc := pkgcache.NewMemoryCache()
	defer svc.Close()
	c := New(svc, time.Minute)

	key := Key("forecast", "fp-abc", 30, 75.0)
	in := models.ForecastResult{BestModel: "linear_regression", HorizonDays: 30}
	if err := c.Store(context.Background(), key, in); err != nil {
		t.Fatalf("store: %v", err)
	}

	out, ok := Lookup[models.ForecastResult](context.Background(), c, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if out.BestModel != in.BestModel || out.HorizonDays != in.HorizonDays {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}

func TestReportCacheMiss(t *testing.T) {
	svc := pkgcache.NewMemoryCache()
	defer svc.Close()
	c := New(svc, time.Minute)

	if _, ok := Lookup[models.ForecastResult](context.Background(), c, Key("busy", "fp", 75.0)); ok {
		t.Fatal("unexpected hit on empty cache")
	}
}

func TestReportCacheDisabled(t *testing.T) {
	var c *ReportCache
	if err := c.Store(context.Background(), "k", 1); err != nil {
		t.Fatalf("nil cache store: %v", err)
	}
	if _, ok := Lookup[int](context.Background(), c, "k"); ok {
		t.Fatal("nil cache returned a hit")
	}
	if err := New(nil, 0).Store(context.Background(), "k", 1); err != nil {
		t.Fatalf("nil backend store: %v", err)
	}
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("forecast", "fp", 30, 75.0)
	if !strings.HasPrefix(base, "report:forecast:") {
		t.Fatalf("key shape: %q", base)
	}
	if got := Key("forecast", "fp", 30, 75.0); got != base {
		t.Fatalf("same inputs produced %q and %q", base, got)
	}
	for _, other := range []string{
		Key("forecast", "fp", 60, 75.0),
		Key("forecast", "fp2", 30, 75.0),
		Key("busy", "fp", 30, 75.0),
	} {
		if other == base {
			t.Fatalf("key collision: %q", other)
		}
	}
}
