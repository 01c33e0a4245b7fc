package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryDir = "../../examples/library"

func testEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = libraryDir
	cfg.DryRunDelay = 0
	out := &bytes.Buffer{}
	return &Env{Config: cfg, Logger: logging.NewNop(), Out: out, Err: &bytes.Buffer{}}, out
}

func TestResolve_FlagsOverrideConfig(t *testing.T) {
	env, err := Resolve(Options{Dir: "lib", Debug: true, Out: &bytes.Buffer{}, Err: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, "lib", env.Config.Dir)
	assert.Equal(t, "debug", env.Config.LogLevel)
	assert.NotNil(t, env.Logger)
}

func TestValidate(t *testing.T) {
	env, out := testEnv(t)
	require.NoError(t, Validate(context.Background(), env))
	assert.Contains(t, out.String(), "Library is valid!")
	assert.Contains(t, out.String(), "4 trees, 1 workflows")
}

func TestValidate_Invalid(t *testing.T) {
	env, _ := testEnv(t)
	env.Config.Dir = t.TempDir()
	assert.Error(t, Validate(context.Background(), env))
}

func TestRun(t *testing.T) {
	t.Run("Requires Exactly One Target", func(t *testing.T) {
		env, _ := testEnv(t)
		assert.Error(t, Run(context.Background(), env, RunOptions{}))
		assert.Error(t, Run(context.Background(), env, RunOptions{Tree: "get_tip", Workflow: "Transfer sample"}))
	})

	t.Run("Tree As JSON", func(t *testing.T) {
		env, out := testEnv(t)
		require.NoError(t, Run(context.Background(), env, RunOptions{Tree: "get_tip", JSON: true}))

		var got struct {
			Tree    string `json:"tree"`
			Outcome struct {
				Status string `json:"status"`
			} `json:"outcome"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, "get_tip", got.Tree)
		assert.Equal(t, "success", got.Outcome.Status)
	})

	t.Run("Workflow As Text", func(t *testing.T) {
		env, out := testEnv(t)
		require.NoError(t, Run(context.Background(), env, RunOptions{Workflow: "Transfer sample", RunID: "run-1"}))
		assert.Contains(t, out.String(), "Transfer sample")
		assert.Contains(t, out.String(), "discard_tip")
	})

	t.Run("Unknown Tree", func(t *testing.T) {
		env, _ := testEnv(t)
		err := Run(context.Background(), env, RunOptions{Tree: "nope"})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrRunFailed)
	})

	t.Run("Trace Goes To Error Stream", func(t *testing.T) {
		env, _ := testEnv(t)
		errOut := &bytes.Buffer{}
		env.Err = errOut
		require.NoError(t, Run(context.Background(), env, RunOptions{Tree: "discard_tip", Trace: true}))
		assert.Contains(t, errOut.String(), "arbor.tree")
	})
}

func TestGraph(t *testing.T) {
	env, out := testEnv(t)
	require.NoError(t, Graph(context.Background(), env, "get_tip", ""))
	assert.True(t, strings.HasPrefix(out.String(), "graph TD"))

	out.Reset()
	require.NoError(t, Graph(context.Background(), env, "", "Transfer sample"))
	assert.True(t, strings.HasPrefix(out.String(), "graph LR"))

	assert.Error(t, Graph(context.Background(), env, "", ""))
	assert.Error(t, Graph(context.Background(), env, "get_tip", "Transfer sample"))
}

func TestDescribe(t *testing.T) {
	env, out := testEnv(t)
	require.NoError(t, Describe(context.Background(), env, "get_tip", ""))
	assert.Contains(t, out.String(), "get_tip")
}

func TestSchema(t *testing.T) {
	t.Run("Single Kind", func(t *testing.T) {
		env, out := testEnv(t)
		require.NoError(t, Schema(env, "tree", ""))
		assert.True(t, json.Valid(out.Bytes()))
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		env, _ := testEnv(t)
		assert.Error(t, Schema(env, "bogus", ""))
	})

	t.Run("All Kinds To Directory", func(t *testing.T) {
		env, _ := testEnv(t)
		dir := filepath.Join(t.TempDir(), "schemas")
		require.NoError(t, Schema(env, "", dir))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 5)
	})
}

func TestOpenAPI(t *testing.T) {
	env, out := testEnv(t)
	require.NoError(t, OpenAPI(context.Background(), env, "gantry", ""))
	assert.Contains(t, out.String(), "openapi: 3.0.3")
	assert.Contains(t, out.String(), "/position")

	assert.Error(t, OpenAPI(context.Background(), env, "nope", ""))

	dir := t.TempDir()
	require.NoError(t, OpenAPI(context.Background(), env, "", dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// startSimulator runs Simulate in the background and waits until every
// module and tool of the library is subscribed.
func startSimulator(t *testing.T, env *Env, opts SimulateOptions) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Simulate(ctx, env, opts) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	client := backend.NewClient(&backend.Options{Addr: env.Config.Redis.Addr})
	t.Cleanup(func() { _ = client.Close() })
	require.Eventually(t, func() bool {
		channels, err := client.PubSubChannels(context.Background(), redis.ModuleChannel(env.Config.Redis.Prefix, "*")).Result()
		return err == nil && len(channels) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisExecutorWithSimulator(t *testing.T) {
	mr := miniredis.RunT(t)

	env, _ := testEnv(t)
	env.Config.Executor = config.ExecutorRedis
	env.Config.Redis.Addr = mr.Addr()
	env.Config.Redis.ReplyTimeout = 2 * time.Second
	env.Config.Redis.Locks = true
	env.Config.Redis.LockTTL = time.Second

	startSimulator(t, env, SimulateOptions{Fail: []string{"deck"}})

	t.Run("Healthy Modules", func(t *testing.T) {
		env, out := testEnv(t)
		env.Config.Executor = config.ExecutorRedis
		env.Config.Redis.Addr = mr.Addr()
		require.NoError(t, Run(context.Background(), env, RunOptions{Tree: "get_tip"}))
		assert.Contains(t, out.String(), "get_tip")
	})

	t.Run("Failing Module", func(t *testing.T) {
		out := &bytes.Buffer{}
		env.Out = out
		err := Run(context.Background(), env, RunOptions{Tree: "aspirate_sample"})
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out.String(), "deck: simulated failure")
	})
}

func TestCreateExecutor_Unknown(t *testing.T) {
	env, _ := testEnv(t)
	env.Config.Executor = "teleport"
	_, err := createExecutor(context.Background(), env)
	assert.Error(t, err)
}

func TestCreateExecutor_Process(t *testing.T) {
	env, _ := testEnv(t)
	env.Config.Executor = config.ExecutorProcess
	d, err := createExecutor(context.Background(), env)
	require.NoError(t, err)
	defer d.Close()
	assert.NotNil(t, d.executor)
}
