package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventLeafCall   EventType = "leaf_call"
	EventLeafReturn EventType = "leaf_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Tree      string    `json:"tree"`
}

// NodeEvent represents entry or exit from a tree node.
// Outcome is set on leave only.
type NodeEvent struct {
	EventBase
	Node    string   `json:"node"`
	Kind    string   `json:"kind"` // "leaf", "children" or "fallback"
	Depth   int      `json:"depth"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// LeafEvent represents a leaf execution.
// Outcome and Duration are set on return only.
type LeafEvent struct {
	EventBase
	Leaf     string        `json:"leaf"`
	NodeType NodeType      `json:"node_type"`
	Outcome  *Outcome      `json:"outcome,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnLeafCall   func(context.Context, *LeafEvent)
	OnLeafReturn func(context.Context, *LeafEvent)
}

// Merge combines hooks so that both h and other are called, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:  chainNode(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:  chainNode(h.OnNodeLeave, other.OnNodeLeave),
		OnLeafCall:   chainLeaf(h.OnLeafCall, other.OnLeafCall),
		OnLeafReturn: chainLeaf(h.OnLeafReturn, other.OnLeafReturn),
	}
}

func chainNode(a, b func(context.Context, *NodeEvent)) func(context.Context, *NodeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainLeaf(a, b func(context.Context, *LeafEvent)) func(context.Context, *LeafEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *LeafEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
