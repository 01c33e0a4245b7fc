package domain

import "context"

type runIDKey struct{}

// WithRunID returns a context carrying runID. Tree runs started with this
// context reuse the ID instead of generating one, which lets a workflow
// correlate all of its trees.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID carried by ctx, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}
