package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chancegraff/curtains-sub000/internal/events"
	"github.com/chancegraff/curtains-sub000/internal/slides"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

// StageObserver receives execution metrics. *metrics.Metrics implements it.
type StageObserver interface {
	ObserveStage(stage string, success bool, d time.Duration)
	IncRetry(stage string)
	IncPipeline(success bool)
}

// Executor runs pipelines against the store behind its bus.
type Executor struct {
	bus            *events.Bus
	st             *store.Store
	logger         *zap.Logger
	observer       StageObserver
	fallbacks      Handlers
	maxConcurrency int
	now            func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger. Defaults to the store's.
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver records stage and pipeline metrics.
func WithObserver(o StageObserver) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithFallbacks registers handlers tried once, as a replacement stage, when a
// stage of the same type fails after all retries.
func WithFallbacks(h Handlers) ExecutorOption {
	return func(e *Executor) { e.fallbacks = h }
}

// WithMaxConcurrency bounds how many stages run at once in parallel mode.
// n <= 0 means no bound.
func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) { e.maxConcurrency = n }
}

// NewExecutor returns an executor that publishes on bus.
func NewExecutor(bus *events.Bus, opts ...ExecutorOption) *Executor {
	st := bus.Store()
	e := &Executor{
		bus:    bus,
		st:     st,
		logger: st.Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextStages returns the pending, not yet attempted stages whose
// dependencies have all succeeded, in declaration order.
func NextStages(p *PipelineConfig, succeeded, attempted map[string]bool) []Stage {
	var ready []Stage
	for _, s := range p.Stages {
		if s.Status != StatusPending || attempted[s.ID] {
			continue
		}
		if slices.ContainsFunc(s.Dependencies, func(d string) bool { return !succeeded[d] }) {
			continue
		}
		ready = append(ready, s)
	}
	return ready
}

// Execute runs p with handlers and returns its result. The result is always
// non-nil. Stage failures are reported in the result only; the error is
// non-nil for structural failures (ErrStuckPipeline), for the pipeline
// deadline (ErrPipelineTimeout) and for cancellation of ctx.
func (e *Executor) Execute(ctx context.Context, p *PipelineConfig, handlers Handlers) (*PipelineResult, error) {
	if p == nil {
		return nil, errors.New("nil pipeline")
	}
	start := e.now()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	r := &run{
		e:         e,
		p:         p.Clone(),
		handlers:  handlers,
		base:      e.st.Version(),
		succeeded: make(map[string]bool),
		attempted: make(map[string]bool),
	}
	r.persist(r.p.Clone())
	r.emit(events.PipelineStarted, events.PipelineStartedPayload{
		PipelineID: p.ID,
		StageCount: len(p.Stages),
	})
	e.logger.Info("pipeline started",
		zap.String("pipeline", p.ID),
		zap.Int("stages", len(p.Stages)),
		zap.Bool("parallel", p.Parallel),
	)

	var err error
	if r.p.Parallel {
		err = r.runParallel(ctx)
	} else {
		err = r.runSequential(ctx)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrPipelineTimeout, p.Timeout)
	}
	if err != nil {
		r.skipPending()
	}

	res := r.result(e.now().Sub(start), err)
	if e.observer != nil {
		e.observer.IncPipeline(res.Success)
	}
	if res.Success {
		r.emit(events.PipelineComplete, events.PipelineCompletePayload{
			PipelineID: res.PipelineID,
			Success:    true,
			Duration:   res.Duration,
		})
		e.logger.Info("pipeline complete", zap.String("pipeline", p.ID), zap.Duration("duration", res.Duration))
	} else {
		r.emit(events.PipelineFailed, events.PipelineFailedPayload{
			PipelineID: res.PipelineID,
			Error:      res.FirstError(),
			Duration:   res.Duration,
		})
		e.logger.Warn("pipeline failed", zap.String("pipeline", p.ID), zap.String("error", res.FirstError()))
	}
	return res, err
}

// run is the bookkeeping of one Execute call. p is a private copy; every
// stage status change goes through transition.
type run struct {
	e        *Executor
	handlers Handlers
	base     uint64 // store version when the run started

	mu        sync.Mutex
	p         *PipelineConfig
	succeeded map[string]bool
	attempted map[string]bool
	results   []StageResult
}

func (r *run) runSequential(ctx context.Context) error {
	for i := 0; i < len(r.p.Stages); i++ {
		s := r.p.Stages[i]
		if s.Status.Terminal() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, d := range s.Dependencies {
			if !r.succeeded[d] {
				return fmt.Errorf("%w: stage %s waits on %s", ErrStuckPipeline, s.ID, d)
			}
		}
		r.attempted[s.ID] = true
		if ok, replaced := r.runStage(ctx, s); !ok && !replaced {
			r.skipPending()
			return nil
		}
	}
	return nil
}

func (r *run) runParallel(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.skipBlocked()

		r.mu.Lock()
		ready := NextStages(r.p, r.succeeded, r.attempted)
		pending := r.pendingIDs()
		for _, s := range ready {
			r.attempted[s.ID] = true
		}
		r.mu.Unlock()

		if len(ready) == 0 {
			if len(pending) == 0 {
				return nil
			}
			return fmt.Errorf("%w: %d pending stage(s) %v", ErrStuckPipeline, len(pending), pending)
		}

		var g errgroup.Group
		if r.e.maxConcurrency > 0 {
			g.SetLimit(r.e.maxConcurrency)
		}
		for _, s := range ready {
			g.Go(func() error {
				r.runStage(ctx, s)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// runStage executes s with retries, records its outcome, and on failure
// schedules a fallback stage when one is registered. replaced reports
// whether a fallback was scheduled.
func (r *run) runStage(ctx context.Context, s Stage) (ok, replaced bool) {
	start := r.e.now()
	r.transition(s.ID, func(st *Stage) {
		st.Status = StatusRunning
		st.StartTime = start
	})
	r.emit(events.StageStarted, events.StageStartedPayload{StageID: s.ID, Type: string(s.Type)})

	handlers := r.handlers
	if s.FallbackOf != "" {
		handlers = r.e.fallbacks
	}
	out, attempts, err := r.executeStageWithRetry(ctx, s, handlers)
	r.recordStage(s, out, attempts, err, r.e.now().Sub(start))
	if err == nil {
		return true, false
	}

	if _, ok := r.e.fallbacks[s.Type]; ok && s.FallbackOf == "" && ctx.Err() == nil {
		r.mu.Lock()
		repl, ferr := Fallback(r.p, s.ID, nil)
		snapshot := r.p.Clone()
		r.mu.Unlock()
		if ferr == nil {
			r.persist(snapshot)
			r.e.logger.Warn("stage failed, scheduling fallback",
				zap.String("stage", s.ID),
				zap.String("fallback", repl.ID),
				zap.Error(err),
			)
			return false, true
		}
	}
	return false, false
}

// executeStageWithRetry makes up to RetryLimit+1 attempts, waiting
// 2^n * Backoff before retry n.
func (r *run) executeStageWithRetry(ctx context.Context, s Stage, handlers Handlers) (StageOutput, int, error) {
	h, ok := handlers[s.Type]
	if !ok || h == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoHandler, s.Type)
	}

	var (
		out      StageOutput
		err      error
		attempts int
	)
	for n := 0; n <= r.p.RetryLimit; n++ {
		if n > 0 {
			delay := backoff(r.p.Backoff, n)
			r.emit(events.StageRetry, events.StageRetryPayload{
				StageID: s.ID,
				Attempt: n,
				Error:   err.Error(),
				Delay:   delay,
			})
			if r.e.observer != nil {
				r.e.observer.IncRetry(string(s.Type))
			}
			r.e.logger.Debug("retrying stage",
				zap.String("stage", s.ID),
				zap.Int("attempt", n),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if serr := sleep(ctx, delay); serr != nil {
				return nil, attempts, fmt.Errorf("%w (last error: %v)", ctxError(serr), err)
			}
		}

		attempts++
		r.transition(s.ID, func(st *Stage) { st.Attempts = attempts })
		out, err = r.executeStage(ctx, s, h)
		if err == nil {
			return out, attempts, nil
		}
		if !retryable(err) {
			break
		}
	}
	return nil, attempts, err
}

// executeStage resolves the input, invokes h, validates and persists the
// output.
func (r *run) executeStage(ctx context.Context, s Stage, h Handler) (StageOutput, error) {
	in, err := r.resolveInput(s)
	if err != nil {
		return nil, err
	}

	out, err := invoke(ctx, h, in, r.e.st)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s handler returned no output", ErrInvalidOutput, s.Type)
	}
	if v, ok := h.(OutputValidator); ok {
		if err := v.ValidateOutput(out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}
	r.persistArtifact(out)
	return out, nil
}

// resolveInput feeds each stage the artifact its upstream stage persisted
// during this run, falling back to the declared input.
func (r *run) resolveInput(s Stage) (StageInput, error) {
	switch s.Type {
	case StageParse:
		if in, ok := s.Input.(ParseInput); ok {
			return in, nil
		}
	case StageTransform:
		if doc, ok := r.artifact(store.KeyAST).(*slides.Document); ok && doc != nil {
			return TransformInput{Document: doc}, nil
		}
		if in, ok := s.Input.(TransformInput); ok && in.Document != nil {
			return in, nil
		}
	case StageRender:
		if t, ok := r.artifact(store.KeyTransformed).(*slides.Transformed); ok && t != nil {
			return RenderInput{Transformed: t}, nil
		}
		if in, ok := s.Input.(RenderInput); ok && in.Transformed != nil {
			return in, nil
		}
	case StageWrite:
		in, _ := s.Input.(WriteInput)
		if rendered, ok := r.artifact(store.KeyRendered).(*slides.Rendered); ok && rendered != nil {
			in.Rendered = rendered
		}
		if in.Rendered != nil {
			return in, nil
		}
	default:
		return s.Input, nil
	}
	return nil, fmt.Errorf("%w: %s stage %s", ErrMissingInput, s.Type, s.ID)
}

func (r *run) artifact(key store.Key) any {
	e, ok := r.e.st.Entry(key)
	if !ok || e.Version <= r.base {
		return nil
	}
	return e.Value
}

func (r *run) persistArtifact(out StageOutput) {
	var err error
	switch o := out.(type) {
	case ParseOutput:
		err = r.e.st.Save(store.KeyAST, o.Document)
	case TransformOutput:
		err = r.e.st.Save(store.KeyTransformed, o.Transformed)
	case RenderOutput:
		err = r.e.st.Save(store.KeyRendered, o.Rendered)
	case WriteOutput:
		err = r.e.st.Save(store.KeyOutput, o.WriteResult)
	}
	if err != nil {
		r.e.logger.Warn("persisting stage output failed", zap.Error(err))
	}
}

// recordStage is the single place a stage reaches a terminal state with a
// result.
func (r *run) recordStage(s Stage, out StageOutput, attempts int, err error, d time.Duration) {
	res := StageResult{
		StageID:  s.ID,
		Type:     s.Type,
		Success:  err == nil,
		Duration: d,
		Attempts: attempts,
		Output:   out,
	}
	if err != nil {
		res.Error = err.Error()
		res.Err = err
	}

	end := r.e.now()
	r.mu.Lock()
	i := r.p.index(s.ID)
	if i >= 0 {
		st := &r.p.Stages[i]
		st.EndTime = end
		st.Attempts = attempts
		st.Output = out
		st.Error = res.Error
		st.Status = StatusComplete
		if err != nil {
			st.Status = StatusFailed
		}
	}
	if err == nil {
		r.succeeded[s.ID] = true
	}
	r.results = append(r.results, res)
	completed, total := len(r.results), len(r.p.Stages)
	snapshot := r.p.Clone()
	r.mu.Unlock()

	r.persist(snapshot)
	if r.e.observer != nil {
		r.e.observer.ObserveStage(string(s.Type), res.Success, d)
	}
	if err != nil {
		r.e.logger.Warn("stage failed",
			zap.String("stage", s.ID),
			zap.String("type", string(s.Type)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
	r.emit(events.PipelineProgress, events.PipelineProgressPayload{
		Progress:  percent(completed, total),
		Completed: completed,
		Total:     total,
	})
}

// transition applies fn to the stage and persists the pipeline.
func (r *run) transition(id string, fn func(*Stage)) {
	r.mu.Lock()
	i := r.p.index(id)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	fn(&r.p.Stages[i])
	snapshot := r.p.Clone()
	r.mu.Unlock()
	r.persist(snapshot)
}

// skipBlocked marks pending stages with a failed, skipped or missing-result
// dependency as skipped, transitively.
func (r *run) skipBlocked() {
	r.mu.Lock()
	changed := false
	for {
		progress := false
		for i := range r.p.Stages {
			s := &r.p.Stages[i]
			if s.Status != StatusPending {
				continue
			}
			for _, d := range s.Dependencies {
				dep, ok := r.p.Stage(d)
				if ok && (dep.Status == StatusFailed || dep.Status == StatusSkipped) {
					s.Status = StatusSkipped
					progress = true
					break
				}
			}
		}
		if !progress {
			break
		}
		changed = true
	}
	var snapshot *PipelineConfig
	if changed {
		snapshot = r.p.Clone()
	}
	r.mu.Unlock()
	if snapshot != nil {
		r.persist(snapshot)
	}
}

// skipPending marks every stage that never started as skipped.
func (r *run) skipPending() {
	r.mu.Lock()
	changed := false
	for i := range r.p.Stages {
		if r.p.Stages[i].Status == StatusPending {
			r.p.Stages[i].Status = StatusSkipped
			changed = true
		}
	}
	var snapshot *PipelineConfig
	if changed {
		snapshot = r.p.Clone()
	}
	r.mu.Unlock()
	if snapshot != nil {
		r.persist(snapshot)
	}
}

func (r *run) pendingIDs() []string {
	var ids []string
	for _, s := range r.p.Stages {
		if s.Status == StatusPending {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (r *run) result(d time.Duration, err error) *PipelineResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &PipelineResult{
		PipelineID: r.p.ID,
		Stages:     slices.Clone(r.results),
		Duration:   d,
		Success:    err == nil && r.allSucceeded(),
	}
	if err != nil {
		res.Error = err.Error()
		res.Err = err
	}
	return res
}

// allSucceeded reports whether every stage completed, counting a failed
// stage as done when its fallback completed.
func (r *run) allSucceeded() bool {
	for _, s := range r.p.Stages {
		if s.Status == StatusComplete {
			continue
		}
		if s.Status == StatusFailed && slices.ContainsFunc(r.p.Stages, func(o Stage) bool {
			return o.FallbackOf == s.ID && o.Status == StatusComplete
		}) {
			continue
		}
		return false
	}
	return true
}

func (r *run) persist(p *PipelineConfig) {
	if err := r.e.st.Save(store.KeyPipeline, p); err != nil {
		r.e.logger.Warn("persisting pipeline failed", zap.Error(err))
	}
}

func (r *run) emit(t store.EventType, payload any) {
	if err := r.e.bus.Emit(t, payload); err != nil {
		r.e.logger.Warn("emitting event failed", zap.String("event", string(t)), zap.Error(err))
	}
}

// invoke runs h in a goroutine so a handler that ignores ctx cannot hold the
// pipeline past its deadline.
func invoke(ctx context.Context, h Handler, in StageInput, st *store.Store) (StageOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, ctxError(err)
	}

	type result struct {
		out StageOutput
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("handler panicked: %v", rec)}
			}
		}()
		out, err := h.Handle(ctx, in, st)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctxError(ctx.Err())
	case res := <-done:
		return res.out, res.err
	}
}

func ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStageTimeout, err)
	}
	return err
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNoHandler) &&
		!errors.Is(err, ErrMissingInput) &&
		!errors.Is(err, ErrStageTimeout) &&
		!errors.Is(err, context.Canceled)
}

func backoff(unit time.Duration, n int) time.Duration {
	if unit <= 0 {
		unit = DefaultBackoff
	}
	return unit * time.Duration(1<<min(n, 16))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func percent(completed, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
