// Package reload runs the edit, compile, run, display loop.
package reload

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wippyai/livid/lifecycle"
)

// Cycler runs one compile/load/run/unload cycle.
type Cycler interface {
	Cycle(ctx context.Context) lifecycle.Result
	Waiting()
}

// Waiter blocks until the next reload trigger.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Sinks truncates the output and log files between iterations.
type Sinks interface {
	ResetSinks() error
}

// Notifier asks the viewer to redisplay.
type Notifier interface {
	Notify(force bool)
}

// Options configures an Orchestrator. Cycler and Waiter are required.
type Options struct {
	Cycler   Cycler
	Waiter   Waiter
	Sinks    Sinks
	Notifier Notifier
	Logger   *zap.Logger
}

// Orchestrator drives reload iterations until its context ends.
type Orchestrator struct {
	opts       Options
	log        *zap.Logger
	iterations int
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{opts: opts, log: opts.Logger}
}

// Iterations returns the number of completed cycles.
func (o *Orchestrator) Iterations() int { return o.iterations }

// Run loops: reset sinks, cycle, refresh the viewer, wait for a save.
// Cycle failures are already logged by the cycler and never end the loop.
// Run returns nil when ctx is cancelled and the watcher's error if it
// fails for any other reason.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if o.opts.Sinks != nil {
			if err := o.opts.Sinks.ResetSinks(); err != nil {
				o.log.Warn("reset sinks", zap.Error(err))
			}
		}

		res := o.opts.Cycler.Cycle(ctx)
		o.iterations++
		if o.opts.Notifier != nil {
			o.opts.Notifier.Notify(true)
		}
		o.log.Debug("cycle complete",
			zap.Int("iteration", o.iterations),
			zap.String("outcome", res.Outcome()))

		o.opts.Cycler.Waiting()
		if err := o.opts.Waiter.Wait(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
}
