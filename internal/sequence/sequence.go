// Package sequence runs ordered lists of blocking steps. Stage lists such as
// the flash handshakes are assembled from Steps, optionally gated with When,
// and executed with Run, which stops at the first failure.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Step is one named stage of a sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports which step of a sequence failed.
type StepError struct {
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Run executes steps in order. It returns a *StepError for the first step
// that fails, or the context error if ctx is done between steps.
func Run(ctx context.Context, steps ...Step) error {
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.Name, Index: i, Err: err}
		}
		if err := s.Run(ctx); err != nil {
			return &StepError{Step: s.Name, Index: i, Err: err}
		}
	}
	return nil
}

// When returns steps if cond holds and nothing otherwise.
func When(cond bool, steps ...Step) []Step {
	if !cond {
		return nil
	}
	return steps
}

// Concat joins step lists.
func Concat(lists ...[]Step) []Step {
	var out []Step
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Sleep is a step that waits for d or until ctx is done.
func Sleep(name string, d time.Duration) Step {
	return Step{Name: name, Run: func(ctx context.Context) error {
		return Wait(ctx, d)
	}}
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry calls fn up to attempts times, interval apart, until it succeeds.
// Errors wrapped with Permanent stop the retries immediately.
func Retry(ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(func() error { return fn(ctx) }, b)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
