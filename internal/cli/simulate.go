package cli

import (
	"context"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/runner"
)

// SimulateOptions configures the module simulator.
type SimulateOptions struct {
	// Fail lists modules or tools that answer every request with a failure.
	Fail []string
	// Delay is how long each module takes to answer.
	Delay time.Duration
}

// Simulate answers requests over Redis on behalf of every module and tool of
// the library, so trees can be run with the redis executor without a rig.
func Simulate(ctx context.Context, env *Env, opts SimulateOptions) error {
	lib, err := arbor.Load(ctx, env.Config.Dir)
	if err != nil {
		return err
	}
	client, err := newRedisClient(ctx, env.Config.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()
	ctx = sm.Context()

	failing := make(map[string]bool, len(opts.Fail))
	for _, m := range opts.Fail {
		failing[m] = true
	}

	resp := redis.NewResponder(client, env.Config.Redis.Prefix, env.Logger)
	for _, module := range append(lib.ModuleNames(), lib.ToolNames()...) {
		h := simulatedModule(env, module, !failing[module], opts.Delay)
		stop, err := resp.Listen(ctx, module, h)
		if err != nil {
			return err
		}
		defer func() { _ = stop() }()
		env.Logger.Info("simulating module", "module", module, "ok", !failing[module])
	}

	<-ctx.Done()
	return nil
}

func simulatedModule(env *Env, module string, ok bool, delay time.Duration) redis.Handler {
	answer := redis.Always(ok, "simulated failure")
	return func(ctx context.Context, req redis.Request) redis.Reply {
		env.Logger.Debug("request", "module", module, "leaf", req.Leaf, "run_id", req.RunID)
		if delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
		return answer(ctx, req)
	}
}
