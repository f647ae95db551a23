// Package pacing provides the delay abstraction used for UI pacing in the
// orchestration pipeline. Delays carry no correctness meaning; tests use
// None to run the pipeline without waiting.
package pacing

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real sleeps on a timer.
type Real struct{}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// None returns immediately unless ctx is already done.
type None struct{}

func (None) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// FromMode returns the Sleeper for a configured pacing mode.
func FromMode(mode string) Sleeper {
	if mode == "none" {
		return None{}
	}
	return Real{}
}
