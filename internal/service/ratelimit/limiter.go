package ratelimit

import (
	"sync"
	"time"
)

// bucket tracks one client's spend. level refills continuously at rate
// tokens per second and never exceeds burst.
type bucket struct {
	level   float64
	burst   float64
	rate    float64
	updated time.Time
}

func (b *bucket) take(now time.Time) bool {
	if dt := now.Sub(b.updated).Seconds(); dt > 0 {
		b.level = min(b.burst, b.level+dt*b.rate)
		b.updated = now
	}
	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

// Limiter is a keyed token bucket guarding the analysis endpoints. Model
// training is expensive enough that a misbehaving client could saturate the
// box with a handful of requests.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func New() *Limiter { return &Limiter{buckets: make(map[string]*bucket)} }

// Allow consumes one token for key, creating a full bucket on first sight.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{level: capacity, burst: capacity, rate: refillPerSec, updated: now}
		l.buckets[key] = b
	}
	return b.take(now)
}
