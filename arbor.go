package arbor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/loader"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/runner"
	"go.opentelemetry.io/otel/trace"
)

// ErrWatchUnsupported is returned by Watch when the library is not a directory
// on disk.
var ErrWatchUnsupported = errors.New("library source does not support watching")

// Load reads and validates the library in dir.
func Load(ctx context.Context, dir string) (*domain.Library, error) {
	return LoadFS(ctx, os.DirFS(dir))
}

// LoadFS reads and validates the library rooted at fsys.
func LoadFS(ctx context.Context, fsys fs.FS, opts ...loader.Option) (*domain.Library, error) {
	b, err := loader.New(opts...).Load(ctx, fsys)
	if err != nil {
		return nil, err
	}
	return validator.Validate(b)
}

// Engine is the high-level entry point of the arbor library.
// It owns the current library and swaps it atomically on Reload, so runs in
// progress keep the library they started with.
type Engine struct {
	dir      string
	fsys     fs.FS
	executor ports.LeafExecutor
	logger   *slog.Logger

	hooks          domain.LifecycleHooks
	tracerProvider trace.TracerProvider
	concurrency    int
	runnerOpts     []runner.Option
	debounce       time.Duration

	current atomic.Pointer[instance]
	watch   watchHub
}

// instance binds a library to the engine and runner built on it.
type instance struct {
	library *domain.Library
	engine  *runtime.Engine
	runner  *runner.Runner
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Hooks registered more
// than once are all called, in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithTracerProvider sets the OpenTelemetry provider of the engine spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithLoadConcurrency bounds how many documents are decoded at once.
func WithLoadConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithRunnerOptions configures the workflow runner behind RunWorkflow.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, opts...)
	}
}

// WithFS reads the library from fsys instead of a directory. Watch is not
// available on such engines.
func WithFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.fsys = fsys
	}
}

// WithDebounce sets how long Watch waits for changes to settle before
// reloading. Defaults to 200ms.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// New loads the library in dir and returns an engine running its trees
// with executor.
func New(dir string, executor ports.LeafExecutor, opts ...Option) (*Engine, error) {
	e := &Engine{
		executor: executor,
		logger:   logging.NewNop(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.fsys == nil {
		if dir == "" {
			return nil, fmt.Errorf("library directory is required when no filesystem is provided")
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		e.dir = abs
		e.fsys = os.DirFS(abs)
		e.logger = e.logger.With("library", filepath.Base(abs))
	}

	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload reads and validates the library again and, when it is valid,
// replaces the current one. On error the current library is kept.
func (e *Engine) Reload(ctx context.Context) error {
	lib, err := LoadFS(ctx, e.fsys,
		loader.WithLogger(e.logger),
		loader.WithConcurrency(e.concurrency),
	)
	if err != nil {
		return err
	}

	engineOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	}
	if e.tracerProvider != nil {
		engineOpts = append(engineOpts, runtime.WithTracerProvider(e.tracerProvider))
	}
	eng := runtime.NewEngine(lib, e.executor, engineOpts...)

	runnerOpts := append([]runner.Option{runner.WithLogger(e.logger)}, e.runnerOpts...)
	e.current.Store(&instance{
		library: lib,
		engine:  eng,
		runner:  runner.New(eng, runnerOpts...),
	})
	e.logger.Info("library loaded", "trees", len(lib.Trees()), "workflows", len(lib.Workflows()))
	return nil
}

// Library returns the current library.
func (e *Engine) Library() *domain.Library {
	return e.current.Load().library
}

// RunTree executes the tree whose root node is named name.
// The error is non-nil only when no such tree exists.
func (e *Engine) RunTree(ctx context.Context, name string) (domain.Outcome, error) {
	return e.current.Load().engine.RunTree(ctx, name)
}

// RunWorkflow executes every tree of the workflow with the given title in
// order.
func (e *Engine) RunWorkflow(ctx context.Context, title string) (*runner.Report, error) {
	return e.current.Load().runner.Run(ctx, title)
}
