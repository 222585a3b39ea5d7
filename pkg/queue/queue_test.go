package queue

import (
	"encoding/json"
	"testing"
	"time"
)

type exportSpec struct {
	Prefix  string `json:"prefix"`
	Horizon int    `json:"horizon"`
}

func TestParsePayloadVariants(t *testing.T) {
	want := exportSpec{Prefix: "nightly", Horizon: 14}

	got, err := ParsePayload[exportSpec](want)
	if err != nil || *got != want {
		t.Errorf("value payload: got %+v (%v)", got, err)
	}

	ptr, err := ParsePayload[exportSpec](&want)
	if err != nil || ptr != &want {
		t.Errorf("pointer payload should pass through, got %p (%v)", ptr, err)
	}

	fromMap, err := ParsePayload[exportSpec](map[string]interface{}{
		"prefix":  "nightly",
		"horizon": 14,
	})
	if err != nil || *fromMap != want {
		t.Errorf("map payload: got %+v (%v)", fromMap, err)
	}

	fromRaw, err := ParsePayload[exportSpec](json.RawMessage(`{"prefix":"nightly","horizon":14}`))
	if err != nil || *fromRaw != want {
		t.Errorf("raw payload: got %+v (%v)", fromRaw, err)
	}

	if _, err := ParsePayload[exportSpec](42); err == nil {
		t.Error("int payload should be rejected")
	}
}

func TestParsePayloadSlice(t *testing.T) {
	got, err := ParsePayload[[]string]([]interface{}{"a", "b"})
	if err != nil {
		t.Fatalf("slice payload: %v", err)
	}
	if len(*got) != 2 || (*got)[0] != "a" || (*got)[1] != "b" {
		t.Errorf("got %v", *got)
	}
}

func TestNormalizePayload(t *testing.T) {
	out := normalizePayload(map[string]interface{}{"prefix": "x"})
	raw, ok := out.(json.RawMessage)
	if !ok {
		t.Fatalf("map should become raw JSON, got %T", out)
	}
	var round exportSpec
	if err := json.Unmarshal(raw, &round); err != nil || round.Prefix != "x" {
		t.Errorf("round trip failed: %+v (%v)", round, err)
	}

	if got := normalizePayload("plain"); got != "plain" {
		t.Errorf("non-map payload should pass through, got %v", got)
	}
}

func TestNewRedisQueueDefaults(t *testing.T) {
	rq := NewRedisQueue(nil, nil, nil, ModeProducerConsumer)
	if rq.cfg.Workers != 1 || rq.cfg.RetryLimit != 3 || rq.cfg.RetryDelay != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", rq.cfg)
	}
	if rq.key("messages") != "admissions:queue:messages" {
		t.Errorf("key %q", rq.key("messages"))
	}

	custom := NewRedisQueue(nil, nil, nil, ModeConsumerOnly, WithKeyPrefix("exports"))
	if custom.key("dlq") != "exports:dlq" {
		t.Errorf("key %q", custom.key("dlq"))
	}
}

func TestQueueModeString(t *testing.T) {
	cases := map[QueueMode]string{
		ModeProducerConsumer: "producer-consumer",
		ModeProducerOnly:     "producer-only",
		ModeConsumerOnly:     "consumer-only",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("mode %d: got %q, want %q", mode, got, want)
		}
	}
}
