package retry

import (
	"context"
	"errors"
	"time"

	// Packages
	backoff "github.com/cenkalti/backoff/v4"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Policy is the retry policy applied to a single chunk transfer
type Policy struct {
	// Attempts is the maximum number of attempts, including the first
	Attempts int `json:"attempts"`

	// Backoff is the wait after a transient failure, before the next attempt
	Backoff time.Duration `json:"backoff"`

	// Timeout bounds a single attempt. Zero means no bound.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Func is one attempt. The attempt number starts at 1.
type Func func(ctx context.Context, attempt int) error

// NotifyFunc is called after a transient failure which will be retried,
// with the number of attempts remaining
type NotifyFunc func(attempt, remaining int, err error)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Default returns three attempts, ten seconds apart, each bounded in time
func Default() Policy {
	return Policy{
		Attempts: schema.RetryLimit,
		Backoff:  schema.RetryBackoff,
		Timeout:  schema.AttemptTimeout,
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Do runs fn until it succeeds, returns an error which is not transient,
// or the attempts are used up. It returns the number of attempts made and
// the error from the last attempt. There is no wait after the last attempt.
func (p Policy) Do(ctx context.Context, sleeper Sleeper, fn Func, notify NotifyFunc) (int, error) {
	attempts := max(p.Attempts, 1)
	if sleeper == nil {
		sleeper = Clock
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(attempts-1)), ctx)
	attempt := 0
	err := backoff.RetryNotifyWithTimer(func() error {
		attempt++
		err := p.attempt(ctx, attempt, fn)
		if err == nil {
			return nil
		} else if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, _ time.Duration) {
		if notify != nil {
			notify(attempt, attempts-attempt, err)
		}
	}, newTimer(ctx, sleeper))

	// Return the attempts made and the last error
	return attempt, err
}

// IsTransient reports whether err is worth another attempt
func IsTransient(err error) bool {
	return errors.Is(err, schema.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (p Policy) attempt(ctx context.Context, attempt int, fn Func) error {
	if p.Timeout <= 0 {
		return fn(ctx, attempt)
	}

	child, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	err := fn(child, attempt)
	if err != nil && ctx.Err() == nil && errors.Is(child.Err(), context.DeadlineExceeded) {
		return schema.ErrTransient.Withf("attempt %d timed out after %v: %w", attempt, p.Timeout, err)
	}
	return err
}
