package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/chancegraff/curtains-sub000/internal/config"
)

// envPrefix namespaces every environment variable curtains reads.
const envPrefix = "CURTAINS"

// ErrEnvConfig indicates a CURTAINS_* variable holds a malformed value.
var ErrEnvConfig = errors.New("invalid environment variable")

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring config files.
type envConfig struct {
	Config    string        `split_words:"true"` // CURTAINS_CONFIG: config file name or path
	Theme     string        `split_words:"true"` // CURTAINS_THEME: theme name
	Timeout   time.Duration `split_words:"true"` // CURTAINS_TIMEOUT: timeout per presentation
	Workers   int           `split_words:"true"` // CURTAINS_WORKERS: parallel workers
	OutputDir string        `split_words:"true"` // CURTAINS_OUTPUT_DIR: output directory
	LogLevel  string        `split_words:"true"` // CURTAINS_LOG_LEVEL: debug, info, warn, error
}

// knownEnvVars lists valid CURTAINS_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"CURTAINS_CONFIG":     true,
	"CURTAINS_THEME":      true,
	"CURTAINS_TIMEOUT":    true,
	"CURTAINS_WORKERS":    true,
	"CURTAINS_OUTPUT_DIR": true,
	"CURTAINS_LOG_LEVEL":  true,
}

// loadEnvConfig reads configuration from environment variables.
// A set but malformed value is an error rather than silently ignored.
func loadEnvConfig() (*envConfig, error) {
	var env envConfig
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvConfig, err)
	}
	if env.Timeout < 0 {
		return nil, fmt.Errorf("%w: %s_TIMEOUT must be positive, got %s", ErrEnvConfig, envPrefix, env.Timeout)
	}
	if env.Workers < 0 {
		return nil, fmt.Errorf("%w: %s_WORKERS must not be negative, got %d", ErrEnvConfig, envPrefix, env.Workers)
	}
	return &env, nil
}

// warnUnknownEnvVars logs warnings for unrecognized CURTAINS_* variables.
// Helps catch typos like CURTAINS_THEMES instead of CURTAINS_THEME.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix+"_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values over the config file.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Theme != "" {
		cfg.Theme = env.Theme
	}
	if env.Timeout > 0 {
		cfg.Pipeline.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Pipeline.Workers = env.Workers
	}
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
}
