package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeTree(t *testing.T, doc string) (*BehaviorTreeFile, error) {
	t.Helper()
	var tree BehaviorTreeFile
	dec := yaml.NewDecoder(strings.NewReader(doc))
	dec.KnownFields(true)
	err := dec.Decode(&tree)
	return &tree, err
}

func TestSequence_UnmarshalYAML(t *testing.T) {
	tree, err := decodeTree(t, `
title: Get Tip
version: 1.0.0
description: attach a tip
participant_modules: [gantry]
tree:
  name: get_tip
  step_number: 1
  sequence:
    fallback:
      - name: is_tip_attached
        step_number: 2
      - name: attach_tip_sequence
        step_number: 3
        error: tip_error
        sequence:
          children:
            - name: move_to_tip_rack
              step_number: 4
            - name: press_tip
              step_number: 5
`)
	require.NoError(t, err)

	root := tree.Tree
	assert.Equal(t, "get_tip", tree.Name())
	require.NotNil(t, root.Sequence)
	assert.Equal(t, SequenceFallback, root.Sequence.Kind)
	require.Len(t, root.Sequence.Nodes, 2)
	assert.True(t, root.Sequence.Nodes[0].IsLeaf())

	inner := root.Sequence.Nodes[1]
	assert.False(t, inner.IsLeaf())
	assert.Equal(t, SequenceChildren, inner.Sequence.Kind)
	assert.Equal(t, "tip_error", inner.Error)
	assert.Equal(t, []string{"is_tip_attached", "move_to_tip_rack", "press_tip"}, tree.Leaves())
}

func TestSequence_UnmarshalYAML_Strict(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "unknown field in nested node",
			doc: `
title: t
tree:
  name: root
  sequence:
    children:
      - name: a
        colour: red
`,
			wantErr: "colour",
		},
		{
			name: "unknown sequence kind",
			doc: `
title: t
tree:
  name: root
  sequence:
    parallel:
      - name: a
`,
			wantErr: "parallel",
		},
		{
			name: "both kinds",
			doc: `
title: t
tree:
  name: root
  sequence:
    children: [{name: a}]
    fallback: [{name: b}]
`,
			wantErr: "exactly one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeTree(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSequence_MarshalRoundTrip(t *testing.T) {
	node := Node{
		Name: "root",
		Sequence: &Sequence{Kind: SequenceFallback, Nodes: []Node{
			{Name: "a", StepNumber: 1},
			{Name: "b", StepNumber: 2},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, yaml.NewEncoder(&buf).Encode(node))
	assert.Contains(t, buf.String(), "fallback:")

	var back Node
	dec := yaml.NewDecoder(&buf)
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(&back))
	assert.Equal(t, node, back)

	raw, err := json.Marshal(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"root","step_number":0,"sequence":{"fallback":[
		{"name":"a","step_number":1},{"name":"b","step_number":2}]}}`, string(raw))
}

func TestNode_Walk_SkipsChildren(t *testing.T) {
	root := Node{Name: "root", Sequence: &Sequence{Nodes: []Node{
		{Name: "inner", Sequence: &Sequence{Nodes: []Node{{Name: "hidden"}}}},
		{Name: "leaf"},
	}}}

	var seen []string
	root.Walk(func(n *Node, depth int) bool {
		seen = append(seen, n.Name)
		return n.Name != "inner"
	})
	assert.Equal(t, []string{"root", "inner", "leaf"}, seen)
}
