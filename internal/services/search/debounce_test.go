package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_SingleCallPasses(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	assert.NoError(t, d.Wait(context.Background()))
	assert.False(t, d.Pending())
}

func TestDebouncer_NewerCallSupersedes(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	first := make(chan error, 1)
	go func() { first <- d.Wait(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, d.Wait(context.Background()))
	assert.ErrorIs(t, <-first, ErrSuperseded)
}

func TestDebouncer_WaitsFullDelay(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	start := time.Now()
	assert.NoError(t, d.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(time.Second)

	done := make(chan error, 1)
	go func() { done <- d.Wait(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	assert.True(t, d.Pending())

	d.Cancel()
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, d.Pending())
}

func TestDebouncer_ContextCancelled(t *testing.T) {
	d := NewDebouncer(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Wait(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, d.Pending())
}
