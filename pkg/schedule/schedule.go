// Package schedule runs sync cycles on a fixed delay.
package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Loop runs a cycle, waits Interval, and repeats. The wait starts when the
// previous cycle finishes, so a slow cycle pushes back the next one and
// cycles never overlap.
type Loop struct {
	Interval time.Duration
	Clock    clockwork.Clock

	// Trigger ends the wait early when it receives. Optional.
	Trigger <-chan struct{}

	Log logrus.FieldLogger
}

// Run calls `cycle` until it fails or ctx is done. It returns the cycle's
// error, or the context's error.
func (l Loop) Run(ctx context.Context, cycle func() error) error {
	for {
		if err := cycle(); err != nil {
			return err
		}

		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}

func (l Loop) wait(ctx context.Context) error {
	if l.Interval <= 0 {
		return ctx.Err()
	}

	timer := l.Clock.NewTimer(l.Interval)
	defer timer.Stop()

	select {
	case <-timer.Chan():
	case <-l.Trigger:
		if l.Log != nil {
			l.Log.Debug("Change detected in source, starting cycle early")
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
