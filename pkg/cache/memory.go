package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"
)

// MemoryConfig sizes the in-process cache and its janitor.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// MemoryOption adjusts MemoryConfig before the cache is built.
type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize caps the entry count before LRU eviction kicks in.
// Zero and below keep the default.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size <= 0 {
			return
		}
		c.MaxSize = size
	}
}

// WithMemoryCleanup sets the janitor sweep interval.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval <= 0 {
			return
		}
		c.CleanupInterval = interval
	}
}

// defaultMemoryTTL applies when Set gets no positive expiration.
const defaultMemoryTTL = 7 * 24 * time.Hour

type entry struct {
	value     interface{}
	expiresAt time.Time
	lastUsed  time.Time
}

func (e *entry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// MemoryCache is an in-process Service with LRU eviction and a background
// janitor sweeping expired entries.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxSize int

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache builds a memory cache and starts its janitor.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{MaxSize: 1000, CleanupInterval: 5 * time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*entry),
		maxSize: cfg.MaxSize,
		done:    make(chan struct{}),
	}
	go mc.janitor(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.entries[key] = &entry{value: value, expiresAt: now.Add(expiration), lastUsed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	e, ok := mc.entries[key]
	if !ok || e.expired(now) {
		if ok {
			delete(mc.entries, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e.lastUsed = now
	value := e.value
	mc.mu.Unlock()

	switch d := dest.(type) {
	case *string:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("cache: value under %q is not a string", key)
		}
		*d = s
		return nil
	case *interface{}:
		*d = value
		return nil
	default:
		// typed destination: round-trip through JSON
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern, mirroring the Redis
// backend closely enough for report invalidation.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("cache: pattern %q: %w", pattern, err)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key := range mc.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(mc.entries, key)
		}
	}
	return nil
}

// Close stops the janitor. Safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() { close(mc.done) })
	return nil
}

// evictOldest drops the least recently used entry. A linear scan is fine at
// the sizes this cache is configured for.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range mc.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldestKey, oldest = key, e.lastUsed
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *MemoryCache) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-mc.done:
			return
		case <-ticker.C:
			mc.sweep()
		}
	}
}

func (mc *MemoryCache) sweep() {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key, e := range mc.entries {
		if e.expired(now) {
			delete(mc.entries, key)
		}
	}
}

var _ Service = (*MemoryCache)(nil)
