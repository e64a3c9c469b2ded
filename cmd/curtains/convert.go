package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	curtains "github.com/chancegraff/curtains-sub000"
	"github.com/chancegraff/curtains-sub000/internal/config"
	"github.com/chancegraff/curtains-sub000/internal/logging"
	"github.com/chancegraff/curtains-sub000/internal/metrics"
)

// ErrUsage indicates malformed command line arguments.
var ErrUsage = errors.New("invalid usage")

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, inputs, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if len(inputs) == 0 {
		printConvertUsage(env.Stderr)
		return ErrNoInput
	}

	warnUnknownEnvVars(env.Stderr)
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateWorkers(cfg.Pipeline.Workers); err != nil {
		return err
	}
	if err := validateFormat(flags.format); err != nil {
		return err
	}

	logger, err := logging.New(logging.CLIConfig(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidValue, err)
	}
	defer func() { _ = logger.Sync() }()

	files, err := discoverFiles(inputs, cfg.Output.Dir, flags.format)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no presentation sources in %s", ErrNoInput, strings.Join(inputs, ", "))
	}

	var m *metrics.Metrics
	if flags.common.metrics {
		m = metrics.New()
	}
	opts, err := converterOptions(cfg, flags, logger, m, env)
	if err != nil {
		return err
	}

	poolSize := min(curtains.ResolvePoolSize(cfg.Pipeline.Workers), len(files))
	logger.Debug("converting", zap.Int("files", len(files)), zap.Int("workers", poolSize))

	pool := curtains.NewConverterPool(poolSize, opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing converters", zap.Error(err))
		}
	}()

	results := convertBatch(ctx, &poolAdapter{pool: pool}, files)
	printResults(results, flags.common.quiet, flags.common.verbose, env)

	if m != nil {
		fmt.Fprintln(env.Stderr)
		if err := m.WriteSummary(env.Stderr); err != nil {
			logger.Warn("writing metrics summary", zap.Error(err))
		}
	}

	return batchError(results)
}

// loadConfig loads the config file named by --config, else CURTAINS_CONFIG,
// else returns the defaults.
func loadConfig(name string, env *envConfig) (*config.Config, error) {
	if name == "" {
		name = env.Config
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.set("workers") {
		cfg.Pipeline.Workers = flags.workers
	}

	// Render flags
	if flags.render.theme != "" {
		cfg.Theme = flags.render.theme
	}
	if flags.render.css != "" {
		cfg.CSS = flags.render.css
	}
	if flags.render.assetPath != "" {
		cfg.Assets.BasePath = flags.render.assetPath
	}
	if flags.render.noSanitize {
		cfg.Sanitize = false
	}

	// Pipeline flags
	if flags.set("parallel") {
		cfg.Pipeline.Parallel = flags.pipeline.parallel
	}
	if flags.set("retries") {
		cfg.Pipeline.RetryLimit = flags.pipeline.retries
	}
	if flags.pipeline.timeout != "" {
		cfg.Pipeline.Timeout = flags.pipeline.timeout
	}

	// Logging flags; quiet wins over verbose
	if flags.common.debug {
		cfg.Debug = true
	}
	switch {
	case flags.common.quiet:
		cfg.LogLevel = "error"
	case flags.common.verbose:
		cfg.LogLevel = "debug"
	}
}

// converterOptions translates the merged configuration into converter
// options. cfg must be valid.
func converterOptions(cfg *config.Config, flags *convertFlags, logger *zap.Logger, m *metrics.Metrics, env *Environment) ([]curtains.Option, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	backoff, err := cfg.BackoffDuration()
	if err != nil {
		return nil, err
	}

	opts := []curtains.Option{
		curtains.WithTheme(cfg.Theme),
		curtains.WithCSS(cfg.CSS),
		curtains.WithAssetPath(cfg.Assets.BasePath),
		curtains.WithParallel(cfg.Pipeline.Parallel),
		curtains.WithRetryLimit(cfg.Pipeline.RetryLimit),
		curtains.WithTimeout(timeout),
		curtains.WithBackoff(backoff),
		curtains.WithSanitize(cfg.Sanitize),
		curtains.WithDebug(cfg.Debug),
		curtains.WithFallback(!flags.pipeline.noFallback),
		curtains.WithLogger(logger),
	}
	if flags.pipeline.noCache {
		opts = append(opts, curtains.WithoutCache())
	}
	if m != nil {
		opts = append(opts, curtains.WithMetrics(m))
	}
	if env.Exporter != nil {
		opts = append(opts, curtains.WithPDFExporter(env.Exporter))
	}
	return opts, nil
}
