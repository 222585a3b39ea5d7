package cache

import (
	"context"
	"encoding/json"
	"time"

	pkgcache "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/cache"
)

// ReportCache memoizes rendered analysis reports keyed by dataset
// fingerprint plus request parameters. Values are stored as JSON strings so
// the memory, redis and layered backends all round-trip them identically.
type ReportCache struct {
	svc pkgcache.Service
	ttl time.Duration
}

// New wraps a cache backend. A nil service disables caching: every lookup
// misses and stores are no-ops, so callers never branch on configuration.
func New(svc pkgcache.Service, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ReportCache{svc: svc, ttl: ttl}
}

// Key builds a report cache key. The fingerprint pins the dataset, params
// pin everything else that shapes the result.
func Key(kind, fingerprint string, params ...interface{}) string {
	return "report:" + kind + ":" + pkgcache.HashKey(pkgcache.GenerateKeyWithParams(fingerprint, params...))
}

// Lookup returns the cached report under key. Backend errors and decode
// failures read as misses; the caller recomputes either way.
func Lookup[T any](ctx context.Context, c *ReportCache, key string) (*T, bool) {
	if c == nil || c.svc == nil {
		return nil, false
	}
	var raw string
	if err := c.svc.Get(ctx, key, &raw); err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Store saves a report under key for the configured TTL.
func (c *ReportCache) Store(ctx context.Context, key string, report interface{}) error {
	if c == nil || c.svc == nil {
		return nil
	}
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.svc.Set(ctx, key, string(b), c.ttl)
}

// Invalidate drops every cached report of one kind.
func (c *ReportCache) Invalidate(ctx context.Context, kind string) error {
	if c == nil || c.svc == nil {
		return nil
	}
	return c.svc.DeleteByPattern(ctx, "report:"+kind+":*")
}
