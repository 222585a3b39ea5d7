package ratelimit

import "context"

// Slots bounds how many model training runs may execute at once. Training
// holds four candidate fits worth of memory, so the cap is small.
type Slots struct {
	ch chan struct{}
}

func NewSlots(n int) *Slots {
	if n <= 0 {
		n = 2
	}
	return &Slots{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot frees or ctx is done.
func (s *Slots) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Slots) Release() {
	select {
	case <-s.ch:
	default:
	}
}
