package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("client-a", 3, 0) {
			t.Fatalf("request %d denied inside burst", i)
		}
	}
	if l.Allow("client-a", 3, 0) {
		t.Fatal("request allowed past capacity with zero refill")
	}
	// independent keys have independent buckets
	if !l.Allow("client-b", 3, 0) {
		t.Fatal("fresh key denied")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 1000) {
		t.Fatal("first request denied")
	}
	if l.Allow("k", 1, 1000) {
		t.Fatal("second immediate request allowed")
	}
	time.Sleep(5 * time.Millisecond)
	if !l.Allow("k", 1, 1000) {
		t.Fatal("bucket did not refill")
	}
}

func TestSlotsBlockAtCapacity(t *testing.T) {
	s := NewSlots(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatal("second acquire succeeded at capacity")
	}

	s.Release()
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSlotsReleaseWithoutAcquire(t *testing.T) {
	s := NewSlots(2)
	s.Release() // must not block or panic
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
}
