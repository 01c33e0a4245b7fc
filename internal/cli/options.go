// Package cli implements the arbor commands. cmd/arbor only wires flags to
// the functions here.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
)

// ErrRunFailed is returned when a tree or workflow ran but did not succeed.
var ErrRunFailed = errors.New("run did not succeed")

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	// Dir overrides the configured library directory when not empty.
	Dir   string
	Debug bool
	Out   io.Writer
	Err   io.Writer
}

// Env bundles the resolved configuration with the output streams.
type Env struct {
	Config config.Config
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// Resolve loads the configuration and applies the flag overrides.
func Resolve(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath, os.Environ())
	if err != nil {
		return nil, err
	}
	if opts.Dir != "" {
		cfg.Dir = opts.Dir
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}

	env := &Env{Config: cfg, Out: opts.Out, Err: opts.Err}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Err == nil {
		env.Err = os.Stderr
	}
	env.Logger, err = createLogger(cfg, env.Err)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// createLogger configures the application logger. Logs go to the error
// stream to keep stdout for command output.
func createLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(w, level, cfg.LogFormat == "json"), nil
}
