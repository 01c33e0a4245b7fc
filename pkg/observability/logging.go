package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks returns lifecycle hooks writing every event to logger at debug
// level, failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "tree", e.Tree, "node", e.Node, "kind", e.Kind, "depth", e.Depth)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "tree", e.Tree, "node", e.Node, "status", e.Outcome.Status.String())
		},
		OnLeafCall: func(ctx context.Context, e *domain.LeafEvent) {
			logger.DebugContext(ctx, "leaf_call", "tree", e.Tree, "leaf", e.Leaf, "type", string(e.NodeType), "run_id", e.RunID)
		},
		OnLeafReturn: func(ctx context.Context, e *domain.LeafEvent) {
			level := slog.LevelDebug
			if !e.Outcome.IsSuccess() {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "leaf_return",
				"tree", e.Tree,
				"leaf", e.Leaf,
				"status", e.Outcome.Status.String(),
				"reason", e.Outcome.Reason,
				"duration", e.Duration,
			)
		},
	}
}
