package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chancegraff/curtains-sub000/internal/events"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

// CoordinatorState is the state of the current or last run.
type CoordinatorState string

// Coordinator states.
const (
	CoordinatorIdle     CoordinatorState = "idle"
	CoordinatorRunning  CoordinatorState = "running"
	CoordinatorComplete CoordinatorState = "complete"
	CoordinatorFailed   CoordinatorState = "failed"
)

// Coordinator turns a start-pipeline event into a pipeline run: it reads the
// runtime config and queue from the store, builds and executes the
// pipeline, and reports coordinator-complete or coordinator-failed.
type Coordinator struct {
	bus     *events.Bus
	st      *store.Store
	exec    *Executor
	factory HandlerFactory
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	state CoordinatorState
	wg    sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger. Defaults to the store's.
func WithCoordinatorLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator returns an idle coordinator. factory builds the handler
// table for each run from the runtime config.
func NewCoordinator(bus *events.Bus, exec *Executor, factory HandlerFactory, opts ...CoordinatorOption) *Coordinator {
	st := bus.Store()
	c := &Coordinator{
		bus:     bus,
		st:      st,
		exec:    exec,
		factory: factory,
		logger:  st.Logger(),
		now:     time.Now,
		state:   CoordinatorIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize subscribes to start-pipeline. Runs use ctx for cancellation.
// The returned function unsubscribes.
func (c *Coordinator) Initialize(ctx context.Context) (unsubscribe func(), err error) {
	return c.bus.Subscribe(events.StartPipeline, func(store.Event) error {
		c.trigger(ctx)
		return nil
	})
}

// State returns the coordinator state.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until no run is in flight.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// trigger starts a run off the store loop so the run can wait on deferred
// work. A start signal during a run is ignored.
func (c *Coordinator) trigger(ctx context.Context) {
	c.mu.Lock()
	if c.state == CoordinatorRunning {
		c.mu.Unlock()
		c.logger.Warn("start-pipeline ignored", zap.Error(ErrAlreadyRunning))
		return
	}
	c.state = CoordinatorRunning
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.setState(c.run(ctx))
	}()
}

func (c *Coordinator) setState(s CoordinatorState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) run(ctx context.Context) (final CoordinatorState) {
	start := c.now()
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("coordinator panicked: %v", rec)
			c.addError(CodeCoordinatorError, msg, "coordinator")
			c.emitFailed(msg)
			final = CoordinatorFailed
		}
	}()

	s := c.st.State()
	cfg, ok := s.Runtime()
	if !ok {
		c.addError(CodeNoConfig, "runtime configuration is missing", "coordinator")
		return CoordinatorIdle
	}
	queue, ok := queueFrom(s)
	if !ok {
		c.addError(CodeNoQueue, "operation queue is missing", "coordinator")
		return CoordinatorIdle
	}

	res, err := c.execute(ctx, cfg, queue)
	if err != nil && res == nil {
		c.addError(CodeCoordinatorError, err.Error(), "coordinator")
		c.emitFailed(err.Error())
		return CoordinatorFailed
	}

	if err := c.st.Save(store.KeyPipelineResult, res); err != nil {
		c.logger.Warn("persisting pipeline result failed", zap.Error(err))
	}
	for _, sr := range res.Stages {
		if !sr.Success {
			c.addError(StageErrorCode(sr.Type), sr.Error, sr.StageID)
		}
	}
	if err := c.st.Dispatch(store.CreateSnapshot{}); err != nil {
		c.logger.Warn("archiving run failed", zap.Error(err))
	}

	if err != nil || !res.Success {
		msg := res.FirstError()
		if msg == "" && err != nil {
			msg = err.Error()
		}
		c.emitFailed(msg)
		return CoordinatorFailed
	}

	c.emit(events.CoordinatorComplete, events.CoordinatorCompletePayload{
		PipelineID: res.PipelineID,
		Success:    true,
		Duration:   c.now().Sub(start),
	})
	return CoordinatorComplete
}

// execute builds handlers and the pipeline and runs it. A nil result means
// the run never started.
func (c *Coordinator) execute(ctx context.Context, cfg store.RuntimeConfig, queue []Operation) (*PipelineResult, error) {
	if c.factory == nil {
		return nil, errors.New("no handler factory configured")
	}
	handlers, err := c.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("building handlers: %w", err)
	}

	p, err := CreatePipeline(queue, BuildOptions{
		Parallel:   cfg.Parallel,
		RetryLimit: cfg.RetryLimit,
		Timeout:    cfg.Timeout,
		Backoff:    cfg.BackoffUnit,
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	if err := c.st.Save(store.KeyPipeline, p.Clone()); err != nil {
		c.logger.Warn("persisting pipeline failed", zap.Error(err))
	}

	return c.exec.Execute(ctx, p, handlers)
}

func queueFrom(s store.State) ([]Operation, bool) {
	v, ok := s.Value(store.KeyQueue)
	if !ok {
		return nil, false
	}
	q, ok := v.([]Operation)
	return q, ok
}

func (c *Coordinator) addError(code, msg, source string) {
	if msg == "" {
		msg = code
	}
	err := c.st.Dispatch(store.AddError{Error: store.StateError{Code: code, Message: msg, Source: source}})
	if err != nil {
		c.logger.Error("recording error failed", zap.String("code", code), zap.Error(err))
	}
}

func (c *Coordinator) emitFailed(msg string) {
	c.emit(events.CoordinatorFailed, events.CoordinatorFailedPayload{Error: msg})
}

func (c *Coordinator) emit(t store.EventType, payload any) {
	if err := c.bus.Emit(t, payload); err != nil {
		c.logger.Error("emitting event failed", zap.String("event", string(t)), zap.Error(err))
	}
}
