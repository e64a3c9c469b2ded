package main

// Tests in this file do not call t.Parallel: they use t.Setenv.

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chancegraff/curtains-sub000/internal/config"
)

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("CURTAINS_CONFIG", "team")
	t.Setenv("CURTAINS_THEME", "dark")
	t.Setenv("CURTAINS_TIMEOUT", "45s")
	t.Setenv("CURTAINS_WORKERS", "3")
	t.Setenv("CURTAINS_OUTPUT_DIR", "build")
	t.Setenv("CURTAINS_LOG_LEVEL", "debug")

	env, err := loadEnvConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := envConfig{
		Config:    "team",
		Theme:     "dark",
		Timeout:   45 * time.Second,
		Workers:   3,
		OutputDir: "build",
		LogLevel:  "debug",
	}
	if *env != want {
		t.Errorf("loadEnvConfig() = %+v, want %+v", *env, want)
	}
}

func TestLoadEnvConfig_IgnoresUnprefixed(t *testing.T) {
	t.Setenv("THEME", "dark")
	t.Setenv("OUTPUT_DIR", "elsewhere")

	env, err := loadEnvConfig()
	if err != nil {
		t.Fatal(err)
	}
	if env.Theme != "" || env.OutputDir != "" {
		t.Errorf("loadEnvConfig() = %+v, want unprefixed variables ignored", *env)
	}
}

func TestLoadEnvConfig_Malformed(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"timeout not a duration", "CURTAINS_TIMEOUT", "soon"},
		{"negative timeout", "CURTAINS_TIMEOUT", "-1s"},
		{"workers not a number", "CURTAINS_WORKERS", "many"},
		{"negative workers", "CURTAINS_WORKERS", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := loadEnvConfig(); !errors.Is(err, ErrEnvConfig) {
				t.Errorf("loadEnvConfig() error = %v, want ErrEnvConfig", err)
			}
		})
	}
}

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("CURTAINS_THEMES", "dark")
	t.Setenv("CURTAINS_THEME", "dark")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	out := buf.String()
	if !strings.Contains(out, "CURTAINS_THEMES") {
		t.Errorf("output %q does not warn about CURTAINS_THEMES", out)
	}
	if strings.Contains(out, "CURTAINS_THEME ") {
		t.Errorf("output %q warns about a known variable", out)
	}
}

func TestApplyEnvConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Theme = "minimal"
	cfg.Output.Dir = "from-file"

	applyEnvConfig(&envConfig{Theme: "dark", Timeout: time.Minute, Workers: 2, LogLevel: "info"}, cfg)

	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q, want env over config file", cfg.Theme)
	}
	if cfg.Output.Dir != "from-file" {
		t.Errorf("Output.Dir = %q, want unset env to keep config file", cfg.Output.Dir)
	}
	if d, _ := cfg.TimeoutDuration(); d != time.Minute {
		t.Errorf("timeout = %s, want 1m", d)
	}
	if cfg.Pipeline.Workers != 2 || cfg.LogLevel != "info" {
		t.Errorf("workers=%d logLevel=%q", cfg.Pipeline.Workers, cfg.LogLevel)
	}
}

func TestLoadConfig_EnvName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.yaml")
	writeFile(t, path, "theme: dark\n")

	cfg, err := loadConfig("", &envConfig{Config: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.Theme)
	}

	if _, err := loadConfig(filepath.Join(dir, "absent.yaml"), &envConfig{Config: path}); !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("flag config error = %v, want ErrConfigNotFound", err)
	}

	cfg, err = loadConfig("", &envConfig{})
	if err != nil || cfg.Theme != config.DefaultTheme {
		t.Errorf("defaults = %+v, %v", cfg, err)
	}
}
