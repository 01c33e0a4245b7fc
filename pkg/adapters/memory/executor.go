package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Executor implements ports.LeafExecutor with canned outcomes.
// Leaves without a canned outcome succeed. Every call is recorded.
// Safe for concurrent use.
type Executor struct {
	mu       sync.RWMutex
	outcomes map[string]domain.Outcome
	calls    []domain.LeafCall
}

// NewExecutor creates an executor answering with outcomes by leaf name.
func NewExecutor(outcomes map[string]domain.Outcome) *Executor {
	copied := make(map[string]domain.Outcome, len(outcomes))
	for k, v := range outcomes {
		copied[k] = v
	}
	return &Executor{outcomes: copied}
}

// Set changes the outcome returned for a leaf.
func (e *Executor) Set(leaf string, out domain.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes[leaf] = out
}

// Execute records the call and returns the canned outcome.
// A done context yields Cancelled regardless of the canned outcome.
func (e *Executor) Execute(ctx context.Context, call domain.LeafCall) domain.Outcome {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	out, ok := e.outcomes[call.Name]
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Cancelled(err.Error())
	}
	if !ok {
		return domain.Success()
	}
	return out
}

// Calls returns the recorded calls in order.
func (e *Executor) Calls() []domain.LeafCall {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.LeafCall(nil), e.calls...)
}

// Names returns the names of the recorded calls in order.
func (e *Executor) Names() []string {
	calls := e.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}
