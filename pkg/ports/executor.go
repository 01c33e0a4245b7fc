package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// LeafExecutor performs the effect of a single leaf.
// The engine emits calls, and the host implements this interface to handle them.
//
// Implementations report failure and cancellation through the returned
// Outcome, never by panicking. When ctx is done the executor should return
// promptly with a Cancelled outcome.
type LeafExecutor interface {
	Execute(ctx context.Context, call domain.LeafCall) domain.Outcome
}

// LeafExecutorFunc adapts a function to LeafExecutor.
type LeafExecutorFunc func(ctx context.Context, call domain.LeafCall) domain.Outcome

// Execute calls f.
func (f LeafExecutorFunc) Execute(ctx context.Context, call domain.LeafCall) domain.Outcome {
	return f(ctx, call)
}
