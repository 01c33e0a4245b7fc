package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_WithLabelDoesNotAlias(t *testing.T) {
	base := Failure("jammed").WithLabel("inner")
	a := base.WithLabel("a")
	b := base.WithLabel("b")

	assert.Equal(t, []string{"inner"}, base.Labels)
	assert.Equal(t, []string{"inner", "a"}, a.Labels)
	assert.Equal(t, []string{"inner", "b"}, b.Labels)
}

func TestOutcome_String(t *testing.T) {
	o := Failure("jammed")
	o.Node = "press_tip"
	o = o.WithLabel("tip_error")

	assert.Equal(t, "success", Success().String())
	assert.Equal(t, "failure at press_tip: jammed [tip_error]", o.String())
	assert.Equal(t, "cancelled: stop", Cancelled("stop").String())
}

func TestOutcome_JSON(t *testing.T) {
	raw, err := json.Marshal(Cancelled("operator abort"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"cancelled","reason":"operator abort"}`, string(raw))

	var back Outcome
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Cancelled("operator abort"), back)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"maybe"}`), &back))
}

func TestErrors_Is(t *testing.T) {
	var err error = &ValidationError{Kind: ErrUnknownLeafNode, Document: "trees/get_tip.yaml", Name: "fly"}
	assert.True(t, errors.Is(err, ErrUnknownLeafNode))
	assert.Contains(t, err.Error(), `"fly"`)

	cause := errors.New("yaml: line 3")
	err = &LoadError{Kind: ErrMalformedDocument, Path: "modules.yaml", Err: cause}
	assert.True(t, errors.Is(err, ErrMalformedDocument))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrMissingLibraryFile))
}

func TestRequestSchema_TimeoutDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"500ms", 500 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"3", 3 * time.Second, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := RequestSchema{Timeout: tt.in}.TimeoutDuration()
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnLeafCall: func(_ context.Context, e *LeafEvent) { calls = append(calls, "a:"+e.Leaf) }}
	b := LifecycleHooks{OnLeafCall: func(_ context.Context, e *LeafEvent) { calls = append(calls, "b:"+e.Leaf) }}

	merged := a.Merge(b)
	merged.OnLeafCall(context.Background(), &LeafEvent{Leaf: "x"})

	assert.Equal(t, []string{"a:x", "b:x"}, calls)
	assert.Nil(t, merged.OnNodeEnter)
}
