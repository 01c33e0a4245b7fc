// Package registry provides an in-process leaf executor: leaves are plain Go
// functions registered by known-node name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// LeafFunc defines the signature of a leaf implementation.
// Returning nil is Success, a context error is Cancelled and any other
// error is Failure with the error text as reason.
type LeafFunc func(ctx context.Context, call domain.LeafCall) error

// Registry manages the available leaves. It implements ports.LeafExecutor.
type Registry struct {
	mu       sync.RWMutex
	leaves   map[string]LeafFunc
	fallback LeafFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallback sets the function used for leaves that were not registered.
// Without one, unregistered leaves fail.
func WithFallback(fn LeafFunc) Option {
	return func(r *Registry) {
		r.fallback = fn
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		leaves: make(map[string]LeafFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a leaf to the registry.
// If a leaf with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn LeafFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves[name] = fn
}

// Names returns the registered leaf names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.leaves))
	for name := range r.leaves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a leaf by name and runs it.
func (r *Registry) Execute(ctx context.Context, call domain.LeafCall) domain.Outcome {
	r.mu.RLock()
	fn, ok := r.leaves[call.Name]
	r.mu.RUnlock()

	if !ok {
		if r.fallback == nil {
			return domain.Failure(fmt.Sprintf("leaf not registered: %s", call.Name))
		}
		fn = r.fallback
	}

	return ToOutcome(fn(ctx, call))
}

// ToOutcome maps a leaf error to its Outcome.
func ToOutcome(err error) domain.Outcome {
	switch {
	case err == nil:
		return domain.Success()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Cancelled(err.Error())
	default:
		return domain.Failure(err.Error())
	}
}

// DryRun returns a leaf that waits for delay and succeeds. It honours
// cancellation while waiting.
func DryRun(delay time.Duration) LeafFunc {
	return func(ctx context.Context, _ domain.LeafCall) error {
		if delay <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
