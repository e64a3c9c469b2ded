package curtains

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/events"
	"github.com/chancegraff/curtains-sub000/internal/metrics"
	"github.com/chancegraff/curtains-sub000/internal/orchestrator"
	"github.com/chancegraff/curtains-sub000/internal/pipeline"
	"github.com/chancegraff/curtains-sub000/internal/slides"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

// Compile-time interface implementation checks.
var (
	_ PDFExporter                = (*pipeline.RodExporter)(nil)
	_ orchestrator.StageObserver = (*metrics.Metrics)(nil)
)

// Converter compiles documents through the stage pipeline. Each Converter
// owns a store, an event bus and a coordinator; stage results cached in the
// store are reused across conversions. Create with NewConverter, use Convert,
// and Close when done.
type Converter struct {
	cfg     converterConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	pdf     PDFExporter
	ownsPDF bool

	st    *store.Store
	bus   *events.Bus
	coord *orchestrator.Coordinator

	mu         sync.Mutex // one conversion at a time
	factoryErr error
	closed     bool
}

// NewConverter creates a Converter with default configuration.
// Returns ErrInvalidOption when an option value is out of range.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			theme:      DefaultTheme,
			retryLimit: DefaultRetryLimit,
			timeout:    DefaultTimeout,
			backoff:    DefaultBackoff,
			sanitize:   true,
			fallback:   true,
			cacheTTL:   pipeline.DefaultCacheTTL,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	if c.pdf == nil {
		c.pdf = pipeline.NewRodExporter(c.cfg.timeout)
		c.ownsPDF = true
	}

	reg := store.NewRegistry()
	var obs store.DispatchObserver
	if c.metrics != nil {
		obs = c.metrics
	}
	mws := store.DefaultMiddleware(reg, obs)
	if c.cfg.debug {
		mws = store.DebugMiddleware(reg, obs)
	}
	c.st = store.New(store.WithLogger(c.logger), store.WithMiddleware(mws...))
	c.bus = events.NewBus(c.st, reg, events.WithSource("converter"), events.WithLogger(c.logger))

	hopts := []pipeline.Option{
		pipeline.WithLogger(c.logger),
		pipeline.WithCacheTTL(c.cfg.cacheTTL),
		pipeline.WithPDFExporter(c.pdf),
	}
	if c.cfg.noCache {
		hopts = append(hopts, pipeline.WithoutCache())
	}
	eopts := []orchestrator.ExecutorOption{orchestrator.WithExecutorLogger(c.logger)}
	if c.cfg.fallback {
		eopts = append(eopts, orchestrator.WithFallbacks(pipeline.FallbackHandlers(pipeline.WithLogger(c.logger))))
	}
	if c.metrics != nil {
		eopts = append(eopts, orchestrator.WithObserver(c.metrics))
	}

	c.coord = orchestrator.NewCoordinator(
		c.bus,
		orchestrator.NewExecutor(c.bus, eopts...),
		c.factory(pipeline.Factory(hopts...)),
		orchestrator.WithCoordinatorLogger(c.logger),
	)
	return c, nil
}

func (cfg converterConfig) validate() error {
	if cfg.theme != "" {
		if err := assets.ValidateAssetName(cfg.theme); err != nil {
			return fmt.Errorf("%w: theme: %w", ErrInvalidOption, err)
		}
	}
	if cfg.retryLimit < 0 {
		return fmt.Errorf("%w: retry limit must not be negative, got %d", ErrInvalidOption, cfg.retryLimit)
	}
	if cfg.timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidOption, cfg.timeout)
	}
	if cfg.backoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative, got %s", ErrInvalidOption, cfg.backoff)
	}
	return nil
}

// factory keeps the last handler construction error, which the coordinator
// only reports as text.
func (c *Converter) factory(base orchestrator.HandlerFactory) orchestrator.HandlerFactory {
	return func(cfg store.RuntimeConfig) (orchestrator.Handlers, error) {
		h, err := base(cfg)
		c.factoryErr = err
		return h, err
	}
}

// Convert compiles in.Source and writes it to in.Output. It blocks until the
// coordinator reports the run's outcome or ctx is done.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, in Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.factoryErr = nil

	if err := c.prepare(in); err != nil {
		return nil, err
	}
	startVersion := c.st.Version()

	unsubscribe, err := c.coord.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	defer unsubscribe()
	wait, cancel, err := c.bus.Await(events.CoordinatorComplete, events.CoordinatorFailed)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := c.bus.Emit(events.StartPipeline, events.StartPipelinePayload{Timestamp: c.st.Now()}); err != nil {
		return nil, err
	}
	evt, err := wait(ctx)
	// A delivery still queued on the store loop may start a run; flushing
	// first makes Wait cover it.
	c.st.Flush()
	c.coord.Wait()
	if err != nil {
		return nil, err
	}
	return c.result(in, evt, startVersion)
}

// prepare writes the run's config and operation queue.
func (c *Converter) prepare(in Input) error {
	if err := c.st.Dispatch(store.ClearErrors{}); err != nil {
		return err
	}
	if err := c.st.Dispatch(store.SetConfig{Config: c.runtimeConfig(in)}); err != nil {
		return err
	}
	queue := []orchestrator.Operation{
		{Type: orchestrator.StageParse, Input: orchestrator.ParseInput{Content: in.Source}},
		{Type: orchestrator.StageTransform},
		{Type: orchestrator.StageRender},
		{Type: orchestrator.StageWrite, Input: orchestrator.WriteInput{Path: in.Output}},
	}
	return c.st.Save(store.KeyQueue, queue)
}

func (c *Converter) runtimeConfig(in Input) store.RuntimeConfig {
	retries := c.cfg.retryLimit
	if retries == 0 {
		retries = orchestrator.NoRetry
	}
	return store.RuntimeConfig{
		Theme:       cmp.Or(in.Theme, c.cfg.theme),
		CSS:         c.cfg.css,
		AssetPath:   c.cfg.assetPath,
		Parallel:    c.cfg.parallel,
		RetryLimit:  retries,
		Timeout:     c.cfg.timeout,
		BackoffUnit: c.cfg.backoff,
		Sanitize:    c.cfg.sanitize,
		Debug:       c.cfg.debug,
	}
}

// result reads the run's outcome back from the store. Entries older than
// startVersion belong to earlier conversions.
func (c *Converter) result(in Input, evt store.Event, startVersion uint64) (*Result, error) {
	var pr *orchestrator.PipelineResult
	if e, ok := c.st.Entry(store.KeyPipelineResult); ok && e.Version > startVersion {
		pr, _ = e.Value.(*orchestrator.PipelineResult)
	}

	if evt.Type == events.CoordinatorFailed {
		switch {
		case c.factoryErr != nil:
			return nil, fmt.Errorf("%w: %w", ErrConversion, c.factoryErr)
		case pr != nil && pr.Cause() != nil:
			return nil, fmt.Errorf("%w: %w", ErrConversion, pr.Cause())
		}
		msg := "unknown error"
		if p, ok := evt.Payload.(events.CoordinatorFailedPayload); ok && p.Error != "" {
			msg = p.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrConversion, msg)
	}
	if pr == nil {
		return nil, fmt.Errorf("%w: pipeline result missing", ErrConversion)
	}

	out, ok := c.value(store.KeyOutput, startVersion).(slides.WriteResult)
	if !ok || !out.Written {
		return nil, fmt.Errorf("%w: no output written for %s", ErrConversion, in.Output)
	}
	res := &Result{
		PipelineID: pr.PipelineID,
		Path:       out.Path,
		Bytes:      out.Bytes,
		Duration:   pr.Duration,
		Stages:     pr.Stages,
		Recovered:  pr.Cause(),
	}
	if r, ok := c.value(store.KeyRendered, startVersion).(*slides.Rendered); ok && r != nil {
		res.Title = r.Title
		res.SlideCount = r.SlideCount
	}
	if res.Recovered != nil {
		c.logger.Warn("conversion recovered by fallback",
			zap.String("requested", in.Output),
			zap.String("written", res.Path),
			zap.Error(res.Recovered),
		)
	}
	return res, nil
}

func (c *Converter) value(key store.Key, startVersion uint64) any {
	e, ok := c.st.Entry(key)
	if !ok || e.Version <= startVersion {
		return nil
	}
	return e.Value
}

// Errors returns the errors recorded during the last conversion.
func (c *Converter) Errors() []store.StateError {
	return c.st.State().Errors()
}

// Close releases the browser, if one was started, and the store loop.
// Convert fails with ErrClosed afterwards.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.ownsPDF && c.pdf != nil {
		errs = append(errs, c.pdf.Close())
	}
	c.st.Close()
	return errors.Join(errs...)
}
