package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Execute(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("ok", "sh", "-c", "exit 0")
	runner.Register("jam", "sh", "-c", "echo 'gantry jammed' >&2; exit 3")

	t.Run("Executes Registered Command", func(t *testing.T) {
		out := runner.Execute(context.Background(), domain.LeafCall{Name: "ok"})
		assert.True(t, out.IsSuccess())
	})

	t.Run("Non Zero Exit Is Failure", func(t *testing.T) {
		out := runner.Execute(context.Background(), domain.LeafCall{Name: "jam"})
		assert.True(t, out.IsFailure())
		assert.Equal(t, "exit status 3: gantry jammed", out.Reason)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		out := runner.Execute(context.Background(), domain.LeafCall{Name: "hacker_script"})
		assert.True(t, out.IsFailure())
		assert.Contains(t, out.Reason, "not registered")
	})
}

func TestRunner_PassesCallViaEnv(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	runner := NewRunner(
		WithBaseDir(dir),
		WithRegistry(map[string]LeafConfig{
			"press_tip": {
				Command:     "sh",
				Args:        []string{"-c", `test "$ARBOR_LEAF_NAME/$ARBOR_LEAF_TREE/$ARBOR_LEAF_STEP/$ARBOR_LEAF_MODULES/$ARBOR_LEAF_MIN_REPLY/$FORCE" = "press_tip/get_tip/5/gantry,pipette/all/high"`},
				Environment: map[string]string{"FORCE": "high"},
			},
		}),
	)

	out := runner.Execute(context.Background(), domain.LeafCall{
		Name:       "press_tip",
		Tree:       "get_tip",
		StepNumber: 5,
		Node: domain.KnownNode{
			Type:      domain.NodeTypeAction,
			Messaging: &domain.Messaging{Modules: []string{"gantry", "pipette"}, MinReply: domain.ReplyAll},
		},
	})
	assert.True(t, out.IsSuccess(), out.String())
}

func TestRunner_Cancellation(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("slow", "sleep", "10")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := runner.Execute(ctx, domain.LeafCall{Name: "slow"})
	assert.True(t, out.IsCancelled())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseLeaves(t *testing.T) {
	leaves, err := ParseLeaves([]byte(`
leaves:
  - name: press_tip
    command: ./bin/press
    args: [--force, "2"]
    env: {AXIS: z}
  - name: ""
    command: ignored
`))
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, []string{"--force", "2"}, leaves["press_tip"].Args)
	assert.Equal(t, "z", leaves["press_tip"].Environment["AXIS"])

	_, err = ParseLeaves([]byte("leaves:\n  - name: a\n"))
	assert.ErrorContains(t, err, "no command")

	_, err = ParseLeaves([]byte("leafs: []\n"))
	assert.Error(t, err)

	empty, err := LoadLeaves(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
