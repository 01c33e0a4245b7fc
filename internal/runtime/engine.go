// Package runtime evaluates behavior trees against a validated library.
//
// Evaluation is a single recursive descent per tree run: children of a node
// are never evaluated concurrently, and the only suspension point is the
// leaf executor. The engine holds no mutable state, so concurrent runs over
// one Engine are safe.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of the engine spans.
const TracerName = "github.com/aretw0/arbor/internal/runtime"

// ReasonEmptyFallback is the failure reason of a fallback without children.
const ReasonEmptyFallback = "fallback has no alternatives"

// Engine runs behavior trees.
type Engine struct {
	library  *domain.Library
	executor ports.LeafExecutor
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
// Hooks are called synchronously on the evaluating goroutine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithTracerProvider sets the provider spans are created from.
// Defaults to the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(TracerName)
	}
}

// NewEngine creates an engine over a validated library.
func NewEngine(library *domain.Library, executor ports.LeafExecutor, opts ...Option) *Engine {
	e := &Engine{
		library:  library,
		executor: executor,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Library returns the library trees are resolved against.
func (e *Engine) Library() *domain.Library {
	return e.library
}

// RunTree executes the tree whose root node is named name.
// The error is non-nil only when no such tree exists; action failures and
// cancellations are reported through the Outcome.
func (e *Engine) RunTree(ctx context.Context, name string) (domain.Outcome, error) {
	tree, err := e.library.TreeByName(name)
	if err != nil {
		return domain.Outcome{}, err
	}
	return e.ExecuteNode(ctx, tree, &tree.Tree), nil
}

// ExecuteNode evaluates node, which must belong to tree, to completion.
// A run ID is taken from ctx (see domain.WithRunID) or generated.
func (e *Engine) ExecuteNode(ctx context.Context, tree *domain.BehaviorTreeFile, node *domain.Node) domain.Outcome {
	runID, ok := domain.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = domain.WithRunID(ctx, runID)
	}

	ctx, span := e.tracer.Start(ctx, "arbor.tree",
		trace.WithAttributes(
			attribute.String("arbor.tree", tree.Name()),
			attribute.String("arbor.run_id", runID),
		),
	)
	defer span.End()

	start := time.Now()
	r := &run{engine: e, tree: tree, runID: runID}
	out := r.eval(ctx, node, 0)

	recordOutcome(span, out)
	e.logger.Info("tree finished",
		"tree", tree.Name(),
		"run_id", runID,
		"status", out.Status.String(),
		"reason", out.Reason,
		"duration", time.Since(start),
	)
	return out
}

// run carries the per-execution identity; it is never shared between runs.
type run struct {
	engine *Engine
	tree   *domain.BehaviorTreeFile
	runID  string
}

func (r *run) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		RunID:     r.runID,
		Tree:      r.tree.Name(),
	}
}

func nodeKind(n *domain.Node) string {
	if n.IsLeaf() {
		return "leaf"
	}
	return n.Sequence.Kind.String()
}

func (r *run) eval(ctx context.Context, n *domain.Node, depth int) domain.Outcome {
	e := r.engine
	kind := nodeKind(n)

	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: r.base(domain.EventNodeEnter),
			Node:      n.Name,
			Kind:      kind,
			Depth:     depth,
		})
	}

	ctx, span := e.tracer.Start(ctx, n.Name,
		trace.WithAttributes(
			attribute.String("arbor.node.kind", kind),
			attribute.Int("arbor.node.step", int(n.StepNumber)),
			attribute.Int("arbor.node.depth", depth),
		),
	)

	var out domain.Outcome
	if n.IsLeaf() {
		out = r.leaf(ctx, n)
	} else {
		switch n.Sequence.Kind {
		case domain.SequenceChildren:
			out = r.children(ctx, n, depth)
		case domain.SequenceFallback:
			out = r.fallback(ctx, n, depth)
		default:
			out = domain.Failure("unsupported sequence kind " + n.Sequence.Kind.String())
			out.Node = n.Name
		}
	}

	if out.IsFailure() && n.Error != "" {
		out = out.WithLabel(n.Error)
		span.SetAttributes(attribute.String("arbor.node.error_label", n.Error))
	}

	recordOutcome(span, out)
	span.End()

	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			EventBase: r.base(domain.EventNodeLeave),
			Node:      n.Name,
			Kind:      kind,
			Depth:     depth,
			Outcome:   &out,
		})
	}
	return out
}

// children is the AND sequence: the first non-success stops evaluation.
func (r *run) children(ctx context.Context, n *domain.Node, depth int) domain.Outcome {
	for i := range n.Sequence.Nodes {
		out := r.eval(ctx, &n.Sequence.Nodes[i], depth+1)
		if !out.IsSuccess() {
			return out
		}
	}
	return domain.Success()
}

// fallback is the OR sequence: failures move on to the next alternative,
// success and cancellation stop evaluation. When every alternative fails
// the last failure is returned.
func (r *run) fallback(ctx context.Context, n *domain.Node, depth int) domain.Outcome {
	if len(n.Sequence.Nodes) == 0 {
		out := domain.Failure(ReasonEmptyFallback)
		out.Node = n.Name
		return out
	}

	var last domain.Outcome
	for i := range n.Sequence.Nodes {
		out := r.eval(ctx, &n.Sequence.Nodes[i], depth+1)
		switch out.Status {
		case domain.StatusSuccess:
			return out
		case domain.StatusCancelled:
			return out
		}
		last = out
	}
	return last
}

func (r *run) leaf(ctx context.Context, n *domain.Node) domain.Outcome {
	e := r.engine

	// Cancellation is checked before the executor is ever reached.
	if err := ctx.Err(); err != nil {
		out := domain.Cancelled(err.Error())
		out.Node = n.Name
		return out
	}

	known, ok := e.library.KnownNode(n.Name)
	if !ok {
		out := domain.Failure("unknown known node")
		out.Node = n.Name
		return out
	}

	call := domain.LeafCall{
		Name:       n.Name,
		Node:       known,
		Tree:       r.tree.Name(),
		StepNumber: n.StepNumber,
		RunID:      r.runID,
	}

	if e.hooks.OnLeafCall != nil {
		e.hooks.OnLeafCall(ctx, &domain.LeafEvent{
			EventBase: r.base(domain.EventLeafCall),
			Leaf:      n.Name,
			NodeType:  known.Type,
		})
	}

	start := time.Now()
	out := e.executor.Execute(ctx, call)
	elapsed := time.Since(start)

	if !out.IsSuccess() && out.Node == "" {
		out.Node = n.Name
	}

	e.logger.Debug("leaf returned",
		"tree", r.tree.Name(),
		"run_id", r.runID,
		"leaf", n.Name,
		"step", n.StepNumber,
		"status", out.Status.String(),
		"reason", out.Reason,
		"duration", elapsed,
	)

	if e.hooks.OnLeafReturn != nil {
		e.hooks.OnLeafReturn(ctx, &domain.LeafEvent{
			EventBase: r.base(domain.EventLeafReturn),
			Leaf:      n.Name,
			NodeType:  known.Type,
			Outcome:   &out,
			Duration:  elapsed,
		})
	}
	return out
}

func recordOutcome(span trace.Span, out domain.Outcome) {
	span.SetAttributes(attribute.String("arbor.outcome", out.Status.String()))
	switch out.Status {
	case domain.StatusSuccess:
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Error, out.String())
	}
}
