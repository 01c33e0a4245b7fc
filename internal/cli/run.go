package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// RunOptions selects what the run command executes.
type RunOptions struct {
	Tree     string
	Workflow string
	RunID    string
	// JSON prints the outcome or report as JSON instead of text.
	JSON bool
	// Trace writes the OpenTelemetry spans of the run to the error stream.
	Trace bool
}

// Run executes a single tree or a workflow. It returns ErrRunFailed when the
// run completed without success.
func Run(ctx context.Context, env *Env, opts RunOptions) error {
	if (opts.Tree == "") == (opts.Workflow == "") {
		return errors.New("exactly one of --tree or --workflow is required")
	}

	var extra []arbor.Option
	if opts.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(env.Err), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		extra = append(extra, arbor.WithTracerProvider(tp))
	}

	eng, d, err := createEngine(ctx, env, extra...)
	if err != nil {
		return err
	}
	defer d.Close()

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()
	ctx = sm.Context()
	if opts.RunID != "" {
		ctx = domain.WithRunID(ctx, opts.RunID)
	}

	if opts.Tree != "" {
		return runTree(ctx, env, eng, opts)
	}
	return runWorkflow(ctx, env, eng, opts)
}

func runTree(ctx context.Context, env *Env, eng *arbor.Engine, opts RunOptions) error {
	start := time.Now()
	out, err := eng.RunTree(ctx, opts.Tree)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if opts.JSON {
		if err := writeJSON(env, map[string]any{"tree": opts.Tree, "outcome": out, "duration": elapsed}); err != nil {
			return err
		}
	} else {
		tui.NewPrinter(env.Out).Outcome(opts.Tree, out, elapsed)
	}
	if !out.IsSuccess() {
		return ErrRunFailed
	}
	return nil
}

func runWorkflow(ctx context.Context, env *Env, eng *arbor.Engine, opts RunOptions) error {
	report, err := eng.RunWorkflow(ctx, opts.Workflow)
	if err != nil {
		return err
	}

	if opts.JSON {
		if err := writeJSON(env, report); err != nil {
			return err
		}
	} else {
		tui.NewPrinter(env.Out).Report(report)
	}
	if !report.Outcome.IsSuccess() {
		return ErrRunFailed
	}
	return nil
}

func writeJSON(env *Env, v any) error {
	enc := json.NewEncoder(env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
