package logger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DiagnosticsCollector aggregates warn/error events by identity so that
// repeated occurrences (e.g. the same malformed row dropped thousands of
// times during an import) collapse into one entry with a counter. Entries
// are kept in memory and served through the diagnostics endpoint.

type CollectorConfig struct {
	MaxEntries int           // aggregated entries retained before eviction
	MaxAge     time.Duration // entries older than this are pruned
}

type DiagnosticEvent struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Caller    string    `json:"caller"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	Fields map[string]interface{} `json:"fields,omitempty"`
}

type DiagnosticsCollector struct {
	config  *CollectorConfig
	entries map[string]*DiagnosticEvent
	mutex   sync.RWMutex
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewDiagnosticsCollector(config *CollectorConfig) *DiagnosticsCollector {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 24 * time.Hour
	}

	collector := &DiagnosticsCollector{
		config:  config,
		entries: make(map[string]*DiagnosticEvent),
		done:    make(chan struct{}),
	}

	collector.wg.Add(1)
	go collector.pruneLoop()

	return collector
}

func (d *DiagnosticsCollector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := d.identity(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, exists := d.entries[key]; exists {
		entry.Count++
		entry.LastSeen = now
		return
	}

	if len(d.entries) >= d.config.MaxEntries {
		d.evictOldestLocked()
	}

	ev := &DiagnosticEvent{Level: level, Message: message, Caller: caller, Fields: fields}
	ev.Count, ev.FirstSeen, ev.LastSeen = 1, now, now
	d.entries[key] = ev
}

// Snapshot returns the retained events, most recent first.
func (d *DiagnosticsCollector) Snapshot() []DiagnosticEvent {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	events := make([]DiagnosticEvent, 0, len(d.entries))
	for _, entry := range d.entries {
		events = append(events, *entry)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].LastSeen.After(events[j].LastSeen)
	})
	return events
}

// identity hashes the parts that make two events "the same occurrence".
// Field maps marshal with sorted keys, so the digest is stable.
func (d *DiagnosticsCollector) identity(level, message string, fields map[string]interface{}, caller string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", level, message, caller)
	if len(fields) > 0 {
		b, _ := json.Marshal(fields)
		h.Write(b)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (d *DiagnosticsCollector) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range d.entries {
		if oldestKey == "" || entry.LastSeen.Before(oldest) {
			oldestKey = key
			oldest = entry.LastSeen
		}
	}
	if oldestKey != "" {
		delete(d.entries, oldestKey)
	}
}

func (d *DiagnosticsCollector) pruneLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-d.config.MaxAge)
			d.mutex.Lock()
			for key, entry := range d.entries {
				if entry.LastSeen.Before(cutoff) {
					delete(d.entries, key)
				}
			}
			d.mutex.Unlock()
		case <-d.done:
			return
		}
	}
}

func (d *DiagnosticsCollector) Close() {
	close(d.done)
	d.wg.Wait()
}
