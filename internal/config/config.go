// Package config loads the curtains configuration file.
//
// Files are YAML (.yaml, .yml) or TOML (.toml). Both are decoded strictly:
// an unknown key is a parse error, not a silently ignored typo.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/chancegraff/curtains-sub000/internal/fileutil"
	"github.com/chancegraff/curtains-sub000/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field limits.
const (
	MaxThemeLength    = 64
	MaxPathLength     = 4096
	MaxDurationLength = 32
	MaxRetryLimit     = 10
	MaxWorkers        = 64
)

// Defaults applied by DefaultConfig.
const (
	DefaultTheme    = "default"
	DefaultTimeout  = "30s"
	DefaultBackoff  = "100ms"
	DefaultRetries  = 1
	DefaultLogLevel = "warn"
)

// Config holds all configuration for presentation builds.
type Config struct {
	Theme    string         `yaml:"theme" toml:"theme"`
	CSS      string         `yaml:"css" toml:"css"` // extra stylesheet path, appended after the theme
	Sanitize bool           `yaml:"sanitize" toml:"sanitize"`
	Debug    bool           `yaml:"debug" toml:"debug"`
	LogLevel string         `yaml:"logLevel" toml:"logLevel"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Pipeline PipelineConfig `yaml:"pipeline" toml:"pipeline"`
	Assets   AssetsConfig   `yaml:"assets" toml:"assets"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir" toml:"dir"` // empty = next to the source file
}

// PipelineConfig defines execution policy. Durations use time.ParseDuration
// syntax ("30s", "250ms").
type PipelineConfig struct {
	Parallel   bool   `yaml:"parallel" toml:"parallel"`
	RetryLimit int    `yaml:"retryLimit" toml:"retryLimit"`
	Timeout    string `yaml:"timeout" toml:"timeout"`
	Backoff    string `yaml:"backoff" toml:"backoff"`
	Workers    int    `yaml:"workers" toml:"workers"` // files converted at once; 0 = CPU count
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath" toml:"basePath"` // empty = embedded assets only
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Theme:    DefaultTheme,
		Sanitize: true,
		LogLevel: DefaultLogLevel,
		Pipeline: PipelineConfig{
			RetryLimit: DefaultRetries,
			Timeout:    DefaultTimeout,
			Backoff:    DefaultBackoff,
		},
	}
}

// TimeoutDuration parses Pipeline.Timeout. Empty means the default.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("pipeline.timeout", c.Pipeline.Timeout, DefaultTimeout)
}

// BackoffDuration parses Pipeline.Backoff. Empty means the default.
func (c *Config) BackoffDuration() (time.Duration, error) {
	return parseDuration("pipeline.backoff", c.Pipeline.Backoff, DefaultBackoff)
}

// Validate checks field lengths and ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("theme", c.Theme, MaxThemeLength); err != nil {
		return err
	}
	if strings.ContainsAny(c.Theme, "/\\. ") {
		return fmt.Errorf("%w: theme: %q is not a theme name", ErrInvalidValue, c.Theme)
	}
	if err := validateFieldLength("css", c.CSS, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}

	if c.Pipeline.RetryLimit < 0 || c.Pipeline.RetryLimit > MaxRetryLimit {
		return fmt.Errorf("%w: pipeline.retryLimit: must be between 0 and %d, got %d",
			ErrInvalidValue, MaxRetryLimit, c.Pipeline.RetryLimit)
	}
	if c.Pipeline.Workers < 0 || c.Pipeline.Workers > MaxWorkers {
		return fmt.Errorf("%w: pipeline.workers: must be between 0 and %d, got %d",
			ErrInvalidValue, MaxWorkers, c.Pipeline.Workers)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.BackoffDuration(); err != nil {
		return err
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logLevel: %q (must be debug, info, warn, or error)", ErrInvalidValue, c.LogLevel)
	}
	return nil
}

func parseDuration(field, value, fallback string) (time.Duration, error) {
	if err := validateFieldLength(field, value, MaxDurationLength); err != nil {
		return 0, err
	}
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidValue, field, d)
	}
	return d, nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys missing from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decode(configPath, data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode picks the format from the file extension; anything but .toml is
// YAML.
func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	return yamlutil.UnmarshalStrict(data, cfg)
}

// SearchPaths lists the files LoadConfig tries for a config name, in order:
// current directory, then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml", ".toml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "curtains", name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
