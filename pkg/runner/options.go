package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL is the lease of module locks when none is given.
const DefaultLockTTL = time.Minute

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithContinueOnFailure keeps running later steps after a failed step.
// The workflow still fails, and a cancelled step still ends it.
func WithContinueOnFailure() Option {
	return func(r *Runner) {
		r.continueOnFailure = true
	}
}

// WithLocker serializes access to physical modules: before each step the
// tree's participant modules are locked, in name order, for at most ttl.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		if ttl <= 0 {
			ttl = DefaultLockTTL
		}
		r.lockTTL = ttl
	}
}

// WithStepObserver registers a callback invoked after every step.
func WithStepObserver(fn func(StepResult)) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}
