package search

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a debounced call that was replaced by a newer
// call before its delay elapsed.
var ErrSuperseded = errors.New("superseded by newer input")

// Debouncer lets only the trailing call of a burst through. Each Wait call
// supersedes any call still waiting.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	waiting chan struct{}
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Wait blocks for the debounce delay. It returns nil if no newer call
// arrived meanwhile, ErrSuperseded if one did, or the context error.
func (d *Debouncer) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.gen++
	my := d.gen
	if d.waiting != nil {
		close(d.waiting)
	}
	cancelled := make(chan struct{})
	d.waiting = cancelled
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen != my {
			return ErrSuperseded
		}
		d.waiting = nil
		return nil
	case <-cancelled:
		return ErrSuperseded
	case <-ctx.Done():
		d.mu.Lock()
		if d.gen == my {
			d.waiting = nil
		}
		d.mu.Unlock()
		return ctx.Err()
	}
}

// Cancel supersedes any waiting call without starting a new one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.waiting != nil {
		close(d.waiting)
		d.waiting = nil
	}
}

// Pending reports whether a call is currently waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting != nil
}
