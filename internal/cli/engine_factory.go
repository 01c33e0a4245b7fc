package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/runner"
	backend "github.com/redis/go-redis/v9"
)

// deps holds what createEngine built besides the engine itself.
type deps struct {
	executor ports.LeafExecutor
	client   *backend.Client
}

func (d *deps) Close() {
	if d.client != nil {
		_ = d.client.Close()
	}
}

func newRedisClient(ctx context.Context, cfg config.Redis) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// createExecutor builds the leaf executor selected by the configuration.
func createExecutor(ctx context.Context, env *Env) (*deps, error) {
	cfg := env.Config
	d := &deps{}

	needRedis := cfg.Executor == config.ExecutorRedis || cfg.Redis.Locks
	if needRedis {
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		d.client = client
	}

	switch cfg.Executor {
	case config.ExecutorDry:
		d.executor = registry.NewRegistry(registry.WithFallback(registry.DryRun(cfg.DryRunDelay)))

	case config.ExecutorProcess:
		path := cfg.Leaves
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Dir, path)
		}
		leaves, err := process.LoadLeaves(path)
		if err != nil {
			d.Close()
			return nil, err
		}
		env.Logger.Debug("process leaves loaded", "path", path, "count", len(leaves))
		d.executor = process.NewRunner(
			process.WithRegistry(leaves),
			process.WithBaseDir(cfg.Dir),
			process.WithLogger(env.Logger),
		)

	case config.ExecutorRedis:
		d.executor = redis.NewDispatcher(d.client,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithReplyTimeout(cfg.Redis.ReplyTimeout),
			redis.WithLogger(env.Logger),
		)

	default:
		d.Close()
		return nil, fmt.Errorf("unknown executor %q", cfg.Executor)
	}
	return d, nil
}

// createEngine initializes an arbor engine with standard CLI conventions.
func createEngine(ctx context.Context, env *Env, extra ...arbor.Option) (*arbor.Engine, *deps, error) {
	d, err := createExecutor(ctx, env)
	if err != nil {
		return nil, nil, err
	}

	cfg := env.Config
	var runnerOpts []runner.Option
	if cfg.ContinueOnFailure {
		runnerOpts = append(runnerOpts, runner.WithContinueOnFailure())
	}
	if cfg.Redis.Locks {
		runnerOpts = append(runnerOpts, runner.WithLocker(redis.NewLocker(d.client, cfg.Redis.Prefix), cfg.Redis.LockTTL))
	}

	opts := []arbor.Option{
		arbor.WithLogger(env.Logger),
		arbor.WithLifecycleHooks(observability.LogHooks(env.Logger)),
		arbor.WithRunnerOptions(runnerOpts...),
	}
	opts = append(opts, extra...)

	eng, err := arbor.New(cfg.Dir, d.executor, opts...)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return eng, d, nil
}
