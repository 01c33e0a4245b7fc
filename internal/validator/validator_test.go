package validator_test

import (
	"errors"
	"testing"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(name string) domain.Node {
	return domain.Node{Name: name}
}

func children(name string, nodes ...domain.Node) domain.Node {
	return domain.Node{Name: name, Sequence: &domain.Sequence{Kind: domain.SequenceChildren, Nodes: nodes}}
}

func fallback(name string, nodes ...domain.Node) domain.Node {
	return domain.Node{Name: name, Sequence: &domain.Sequence{Kind: domain.SequenceFallback, Nodes: nodes}}
}

func validBundle() *domain.Bundle {
	return &domain.Bundle{
		Modules: domain.ModuleFile{
			FileName: "modules.yaml",
			Version:  "1.0.0",
			Content: map[string]domain.Module{
				"gantry":  {Info: domain.ModuleInfo{Name: "gantry"}},
				"pipette": {Info: domain.ModuleInfo{Name: "pipette"}},
			},
		},
		Tools: domain.ToolFile{
			FileName: "tools.yaml",
			Version:  "1.0.0",
			Content: map[string]domain.Tool{
				"tip":     {Name: "tip", PickUp: "adapter"},
				"adapter": {Name: "adapter"},
			},
		},
		KnownNodes: domain.KnownNodesFile{
			FileName: "nodes.yaml",
			Version:  "1.0.0",
			Content: map[string]domain.KnownNode{
				"is_tip_attached": {Type: domain.NodeTypeCondition, Messaging: &domain.Messaging{Modules: []string{"pipette"}, MinReply: domain.ReplyOne}},
				"press_tip":       {Type: domain.NodeTypeAction, Messaging: &domain.Messaging{Modules: []string{"gantry", "adapter"}, MinReply: domain.ReplyAll}},
				"eject_tip":       {Type: domain.NodeTypeAction},
			},
		},
		Trees: []domain.BehaviorTreeFile{
			{
				FileName:     "trees/get_tip.yaml",
				Participants: []string{"gantry", "pipette"},
				Tree:         fallback("get_tip", leaf("is_tip_attached"), children("attach", leaf("press_tip"))),
			},
			{
				FileName: "trees/discard.yaml",
				Tree:     children("discard", leaf("eject_tip")),
			},
		},
		Workflows: []domain.WorkflowFile{
			{FileName: "workflows/cycle.yaml", Title: "Cycle", Workflow: []domain.WorkflowStep{{Name: "get_tip"}, {Name: "discard"}}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	lib, err := validator.Validate(validBundle())
	require.NoError(t, err)

	tree, err := lib.TreeByName("get_tip")
	require.NoError(t, err)
	assert.Equal(t, "trees/get_tip.yaml", tree.FileName)

	_, err = lib.WorkflowByTitle("Cycle")
	assert.NoError(t, err)
}

func TestValidate_EmptyCollections(t *testing.T) {
	b := validBundle()
	b.Trees = nil
	b.Workflows = nil

	lib, err := validator.Validate(b)
	require.NoError(t, err)
	assert.Empty(t, lib.Trees())
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(b *domain.Bundle)
		wantKind error
		wantName string
		wantDoc  string
	}{
		{
			name:     "modules version",
			mutate:   func(b *domain.Bundle) { b.Modules.Version = "1.0" },
			wantKind: domain.ErrInvalidVersion,
			wantName: "1.0",
			wantDoc:  "modules.yaml",
		},
		{
			name:     "known nodes version prefixed",
			mutate:   func(b *domain.Bundle) { b.KnownNodes.Version = "v1.0.0" },
			wantKind: domain.ErrInvalidVersion,
			wantName: "v1.0.0",
			wantDoc:  "nodes.yaml",
		},
		{
			name: "tool pick up",
			mutate: func(b *domain.Bundle) {
				b.Tools.Content["tip"] = domain.Tool{Name: "tip", PickUp: "gripper"}
			},
			wantKind: domain.ErrUnknownToolReference,
			wantName: "gripper",
			wantDoc:  "tools.yaml",
		},
		{
			name: "messaging module",
			mutate: func(b *domain.Bundle) {
				b.KnownNodes.Content["eject_tip"] = domain.KnownNode{
					Type:      domain.NodeTypeAction,
					Messaging: &domain.Messaging{Modules: []string{"camera"}, MinReply: domain.ReplyAny},
				}
			},
			wantKind: domain.ErrUnknownModuleReference,
			wantName: "camera",
			wantDoc:  "nodes.yaml",
		},
		{
			name: "tree named after known node",
			mutate: func(b *domain.Bundle) {
				b.Trees[1].Tree = children("eject_tip", leaf("press_tip"))
			},
			wantKind: domain.ErrReservedTreeName,
			wantName: "eject_tip",
			wantDoc:  "trees/discard.yaml",
		},
		{
			name: "duplicate tree name",
			mutate: func(b *domain.Bundle) {
				b.Trees[1].Tree = children("get_tip", leaf("eject_tip"))
			},
			wantKind: domain.ErrDuplicateTreeName,
			wantName: "get_tip",
			wantDoc:  "trees/discard.yaml",
		},
		{
			name: "participant is a tool",
			mutate: func(b *domain.Bundle) {
				b.Trees[0].Participants = []string{"gantry", "tip"}
			},
			wantKind: domain.ErrUnknownParticipant,
			wantName: "tip",
			wantDoc:  "trees/get_tip.yaml",
		},
		{
			name: "leaf deep under fallback",
			mutate: func(b *domain.Bundle) {
				b.Trees[0].Tree = fallback("get_tip",
					leaf("is_tip_attached"),
					children("attach", leaf("press_tip"), fallback("retry", leaf("wiggle"))),
				)
			},
			wantKind: domain.ErrUnknownLeafNode,
			wantName: "wiggle",
			wantDoc:  "trees/get_tip.yaml",
		},
		{
			name: "leaf under children",
			mutate: func(b *domain.Bundle) {
				b.Trees[1].Tree = children("discard", leaf("eject_tip"), leaf("rinse"))
			},
			wantKind: domain.ErrUnknownLeafNode,
			wantName: "rinse",
			wantDoc:  "trees/discard.yaml",
		},
		{
			name: "workflow step",
			mutate: func(b *domain.Bundle) {
				b.Workflows[0].Workflow = append(b.Workflows[0].Workflow, domain.WorkflowStep{Name: "eject_tip"})
			},
			wantKind: domain.ErrUnknownWorkflowStep,
			wantName: "eject_tip",
			wantDoc:  "workflows/cycle.yaml",
		},
		{
			name: "duplicate workflow",
			mutate: func(b *domain.Bundle) {
				b.Workflows = append(b.Workflows, domain.WorkflowFile{FileName: "workflows/again.yaml", Title: "Cycle"})
			},
			wantKind: domain.ErrDuplicateWorkflow,
			wantName: "Cycle",
			wantDoc:  "workflows/again.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBundle()
			tt.mutate(b)

			lib, err := validator.Validate(b)
			assert.Nil(t, lib)
			require.ErrorIs(t, err, tt.wantKind)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantName, ve.Name)
			assert.Equal(t, tt.wantDoc, ve.Document)
		})
	}
}

func TestValidate_FailFastOrder(t *testing.T) {
	b := validBundle()
	b.Workflows[0].Workflow = []domain.WorkflowStep{{Name: "nope"}}
	b.Trees[0].Tree = children("get_tip", leaf("nope"))
	b.Tools.Content["tip"] = domain.Tool{Name: "tip", PickUp: "nope"}

	_, err := validator.Validate(b)
	assert.ErrorIs(t, err, domain.ErrUnknownToolReference)

	// Known-node messaging is checked before tool pick-ups.
	b.KnownNodes.Content["is_deck_ready"] = domain.KnownNode{Type: domain.NodeTypeCondition, Messaging: &domain.Messaging{Modules: []string{"ghost"}}}
	_, err = validator.Validate(b)
	assert.ErrorIs(t, err, domain.ErrUnknownModuleReference)

	// Versions come first of all.
	b.Modules.Version = "1.0"
	_, err = validator.Validate(b)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)

	// Known nodes are visited in name order.
	b = validBundle()
	b.KnownNodes.Content["a_first"] = domain.KnownNode{Type: domain.NodeTypeAction, Messaging: &domain.Messaging{Modules: []string{"x"}}}
	b.KnownNodes.Content["z_last"] = domain.KnownNode{Type: domain.NodeTypeAction, Messaging: &domain.Messaging{Modules: []string{"y"}}}
	for range 10 {
		_, err = validator.Validate(b)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "x", ve.Name)
	}
}

func TestValidVersion(t *testing.T) {
	tests := map[string]bool{
		"1.0.0":              true,
		"0.12.3":             true,
		"1.2.3-rc.1":         true,
		"1.2.3+build.5":      true,
		"1.2.3-beta+exp.sha": true,
		"":                   false,
		"1":                  false,
		"1.2":                false,
		"v1.2.3":             false,
		"01.2.3":             false,
		"1.2.3.4":            false,
		"one.two.three":      false,
	}
	for in, want := range tests {
		assert.Equal(t, want, validator.ValidVersion(in), in)
	}
}
