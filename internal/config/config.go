// Package config resolves the arbor CLI configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, ARBOR_* environment variables and command-line flags (applied
// by the caller). Nested keys are addressed in the environment with an
// underscore, e.g. ARBOR_REDIS_ADDR for redis.addr.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARBOR_"

// Executors accepted by the executor key.
const (
	ExecutorDry     = "dry"
	ExecutorProcess = "process"
	ExecutorRedis   = "redis"
)

// Config is the resolved configuration.
type Config struct {
	Dir               string        `mapstructure:"dir"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	Executor          string        `mapstructure:"executor"`
	DryRunDelay       time.Duration `mapstructure:"dry_run_delay"`
	Leaves            string        `mapstructure:"leaves"`
	ContinueOnFailure bool          `mapstructure:"continue_on_failure"`
	Redis             Redis         `mapstructure:"redis"`
	HTTP              HTTP          `mapstructure:"http"`
}

// Redis configures the module messaging and lock backend.
type Redis struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout"`
	Locks        bool          `mapstructure:"locks"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// HTTP configures the API server.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

func defaults() map[string]any {
	return map[string]any{
		"dir":                 ".",
		"log_level":           "info",
		"log_format":          "text",
		"executor":            ExecutorDry,
		"dry_run_delay":       "200ms",
		"leaves":              "leaves.yaml",
		"continue_on_failure": false,
		"redis": map[string]any{
			"addr":          "localhost:6379",
			"password":      "",
			"db":            0,
			"prefix":        "arbor:",
			"reply_timeout": "5s",
			"locks":         false,
			"lock_ttl":      "5m",
		},
		"http": map[string]any{
			"addr": ":8080",
		},
	}
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves the configuration from the file at path (skipped when path
// is empty) and the ARBOR_* variables of environ.
func Load(path string, environ []string) (Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		merge(raw, file)
	}

	applyEnv(raw, environ)

	cfg, err := decode(raw)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	var errs []error
	switch c.Executor {
	case ExecutorDry, ExecutorProcess, ExecutorRedis:
	default:
		errs = append(errs, fmt.Errorf("executor must be one of dry, process, redis: got %q", c.Executor))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json: got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func decode(raw map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// merge copies src into dst, descending into maps present in both.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if cur, isMap := dst[k].(map[string]any); ok && isMap {
			merge(cur, sub)
			continue
		}
		dst[k] = v
	}
}

// applyEnv sets the keys named by ARBOR_* variables. Only keys that exist
// in raw are set, so unrelated variables sharing the prefix are ignored.
func applyEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

		if _, exists := raw[key]; exists {
			if _, isMap := raw[key].(map[string]any); !isMap {
				raw[key] = value
			}
			continue
		}
		section, field, ok := strings.Cut(key, "_")
		if !ok {
			continue
		}
		if sub, isMap := raw[section].(map[string]any); isMap {
			if _, exists := sub[field]; exists {
				sub[field] = value
			}
		}
	}
}
