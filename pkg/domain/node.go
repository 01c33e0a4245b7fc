package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeType tags what a known node does when it runs.
type NodeType string

const (
	// NodeTypeCondition checks a predicate of the rig (e.g. "is_tip_attached").
	NodeTypeCondition NodeType = "condition"
	// NodeTypeAction performs a side-effect on one or more modules.
	NodeTypeAction NodeType = "action"
	// NodeTypeSequence is a leaf that a module expands into its own sequence.
	NodeTypeSequence NodeType = "sequence"
	// NodeTypeError reports an error condition to the operator.
	NodeTypeError NodeType = "error"
)

// ReplyMode is the reply-aggregation policy of a messaging descriptor.
type ReplyMode string

const (
	// ReplyAny succeeds on the first successful reply.
	ReplyAny ReplyMode = "any"
	// ReplyAll succeeds once every module replied successfully.
	ReplyAll ReplyMode = "all"
	// ReplyOne lets the first reply decide.
	ReplyOne ReplyMode = "one"
)

// KnownNodesFile is the document holding the reusable leaf definitions.
type KnownNodesFile struct {
	FileName    string               `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Title       string               `json:"title" yaml:"title" validate:"required"`
	Description string               `json:"description" yaml:"description"`
	Version     string               `json:"version" yaml:"version" validate:"required"`
	Content     map[string]KnownNode `json:"content" yaml:"content" validate:"dive"`
}

// KnownNode is a reusable leaf. Its key in KnownNodesFile.Content is the
// name tree leaves refer to.
type KnownNode struct {
	Type        NodeType   `json:"type" yaml:"type" validate:"required,oneof=condition action sequence error"`
	Messaging   *Messaging `json:"zenoh,omitempty" yaml:"zenoh,omitempty"`
	Description string     `json:"description" yaml:"description"`
}

// Messaging names the modules a known node talks to and how their replies
// are aggregated.
type Messaging struct {
	Modules  []string  `json:"modules" yaml:"modules" validate:"required"`
	MinReply ReplyMode `json:"min_reply" yaml:"min_reply" validate:"required,oneof=any all one"`
}

// SequenceKind selects the control-flow semantics of an internal node.
type SequenceKind int

const (
	// SequenceChildren runs every child in order and fails on the first failure (AND).
	SequenceChildren SequenceKind = iota
	// SequenceFallback tries children in order until one succeeds (OR).
	SequenceFallback
)

func (k SequenceKind) String() string {
	switch k {
	case SequenceChildren:
		return "children"
	case SequenceFallback:
		return "fallback"
	default:
		return fmt.Sprintf("SequenceKind(%d)", int(k))
	}
}

// ParseSequenceKind maps the document key to a SequenceKind.
func ParseSequenceKind(s string) (SequenceKind, bool) {
	switch s {
	case "children":
		return SequenceChildren, true
	case "fallback":
		return SequenceFallback, true
	}
	return 0, false
}

// Sequence is the ordered list of children of an internal node together
// with the semantics used to evaluate them.
//
// On disk it is written as a single-key mapping:
//
//	sequence:
//	  fallback:
//	    - name: is_tip_attached
//	    - name: attach_tip
type Sequence struct {
	Kind  SequenceKind
	Nodes []Node `validate:"dive"`
}

// UnmarshalYAML decodes the single-key mapping form. Children are decoded
// with unknown fields rejected, like the rest of the document.
func (s *Sequence) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("line %d: sequence must have exactly one of \"children\" or \"fallback\"", value.Line)
	}
	key := value.Content[0].Value
	kind, ok := ParseSequenceKind(key)
	if !ok {
		return fmt.Errorf("line %d: field %s not found in type domain.Sequence", value.Content[0].Line, key)
	}

	var nodes []Node
	if err := decodeStrict(value.Content[1], &nodes); err != nil {
		return fmt.Errorf("%s at line %d: %w", key, value.Content[1].Line, err)
	}
	*s = Sequence{Kind: kind, Nodes: nodes}
	return nil
}

// MarshalYAML writes the single-key mapping form.
func (s Sequence) MarshalYAML() (any, error) {
	return map[string][]Node{s.Kind.String(): s.Nodes}, nil
}

// MarshalJSON writes the single-key mapping form.
func (s Sequence) MarshalJSON() ([]byte, error) {
	nodes := s.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(map[string][]Node{s.Kind.String(): nodes})
}

// decodeStrict re-encodes a node and decodes it with KnownFields enabled;
// yaml.Node.Decode does not inherit the strictness of the outer decoder.
func decodeStrict(value *yaml.Node, out any) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Node is a behavior-tree node. A node without a Sequence is a leaf and
// resolves to a KnownNode by name; an internal node's name is only a label.
type Node struct {
	Name       string    `json:"name" yaml:"name" validate:"required"`
	StepNumber uint8     `json:"step_number" yaml:"step_number"`
	Sequence   *Sequence `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsLeaf reports whether the node has no sequence.
func (n *Node) IsLeaf() bool {
	return n.Sequence == nil
}

// Walk visits n and its descendants depth-first, in document order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if !fn(n, depth) || n.Sequence == nil {
		return
	}
	for i := range n.Sequence.Nodes {
		n.Sequence.Nodes[i].walk(fn, depth+1)
	}
}
