// Package process executes leaves as local processes.
//
// Only commands listed in the allow-list (usually leaves.yaml) can run. Call
// metadata is passed through ARBOR_LEAF_* environment variables, never as
// command-line flags.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// EnvPrefix prefixes every variable describing the leaf call.
const EnvPrefix = "ARBOR_LEAF_"

// Runner implements ports.LeafExecutor by running local processes.
// It follows a Strict Registry pattern for security (Allow-Listing).
type Runner struct {
	registry  map[string]LeafConfig
	baseDir   string
	waitDelay time.Duration
	logger    *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(leaves map[string]LeafConfig) RunnerOption {
	return func(r *Runner) {
		for name, leaf := range leaves {
			leaf.Name = name
			r.registry[name] = leaf
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:  make(map[string]LeafConfig),
		waitDelay: time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = LeafConfig{
		Name:    name,
		Command: command,
		Args:    args,
	}
}

// Execute runs the command registered for the leaf. Exit status 0 is
// Success; any other exit is Failure carrying stderr; a done context is
// Cancelled.
func (r *Runner) Execute(ctx context.Context, call domain.LeafCall) domain.Outcome {
	leaf, ok := r.registry[call.Name]
	if !ok {
		return domain.Failure(fmt.Sprintf("process leaf not registered: %s", call.Name))
	}

	cmd := exec.CommandContext(ctx, leaf.Command, leaf.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = r.waitDelay
	cmd.Env = append(cmd.Environ(), callEnv(call)...)
	for k, v := range leaf.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("process leaf finished",
		"leaf", call.Name,
		"command", leaf.Command,
		"duration", time.Since(start),
		"error", err,
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Cancelled(ctxErr.Error())
	}
	if err != nil {
		reason := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason = fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			reason += ": " + msg
		}
		return domain.Failure(reason)
	}
	return domain.Success()
}

// callEnv renders the call as environment variables.
func callEnv(call domain.LeafCall) []string {
	env := []string{
		EnvPrefix + "NAME=" + call.Name,
		EnvPrefix + "TYPE=" + string(call.Node.Type),
		EnvPrefix + "TREE=" + call.Tree,
		EnvPrefix + "STEP=" + strconv.Itoa(int(call.StepNumber)),
		EnvPrefix + "RUN_ID=" + call.RunID,
	}
	if m := call.Node.Messaging; m != nil {
		env = append(env,
			EnvPrefix+"MODULES="+strings.Join(m.Modules, ","),
			EnvPrefix+"MIN_REPLY="+string(m.MinReply),
		)
	}
	return env
}
