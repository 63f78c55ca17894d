package retry

import (
	"context"
	"sync"
	"time"

	// Packages
	backoff "github.com/cenkalti/backoff/v4"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Sleeper waits for a duration, returning early with the context error
// when the context is done
type Sleeper interface {
	Sleep(context.Context, time.Duration) error
}

type clock struct{}

// timer runs the waits between attempts through a Sleeper. The channel
// only fires when the wait completes.
type timer struct {
	ctx     context.Context
	sleeper Sleeper
	c       chan time.Time
}

// Recorder is a Sleeper which records each wait and returns immediately
type Recorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Clock sleeps in real time
var Clock Sleeper = clock{}

var _ Sleeper = (*Recorder)(nil)
var _ backoff.Timer = (*timer)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newTimer(ctx context.Context, sleeper Sleeper) *timer {
	return &timer{ctx: ctx, sleeper: sleeper, c: make(chan time.Time, 1)}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

// Waits returns the durations waited so far
func (r *Recorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

// Total returns the sum of the durations waited so far
func (r *Recorder) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.waits {
		total += d
	}
	return total
}

func (t *timer) Start(d time.Duration) {
	if err := t.sleeper.Sleep(t.ctx, d); err != nil {
		return
	}
	select {
	case t.c <- time.Now():
	default:
	}
}

func (t *timer) Stop() {}

func (t *timer) C() <-chan time.Time {
	return t.c
}
