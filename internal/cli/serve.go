package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServeOptions configures the serve command.
type ServeOptions struct {
	// Addr overrides the configured listen address when not empty.
	Addr string
	// Watch reloads the library when its files change.
	Watch bool
}

// Serve runs the HTTP API until ctx is done or a termination signal arrives.
func Serve(ctx context.Context, env *Env, opts ServeOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	eng, d, err := createEngine(ctx, env, arbor.WithLifecycleHooks(metrics.Hooks()))
	if err != nil {
		return err
	}
	defer d.Close()
	defer func() { _ = eng.Close() }()

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()
	ctx = sm.Context()

	if opts.Watch {
		events, err := eng.Watch(ctx)
		if err != nil {
			return err
		}
		go func() {
			for ev := range events {
				env.Logger.Info("library watch", "event", ev)
			}
		}()
	}

	addr := env.Config.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpAdapter.NewHandler(eng, httpAdapter.WithLogger(env.Logger), httpAdapter.WithGatherer(reg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tui.IsTerminal(env.Out) {
		tui.PrintBanner(env.Out)
	}
	env.Logger.Info("starting server", "addr", addr, "library", env.Config.Dir, "executor", env.Config.Executor)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		env.Logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			env.Logger.Error("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		env.Logger.Info("server stopped gracefully")
		return nil
	}
}
