// Package store implements the versioned, reducer-driven state container
// shared by the orchestration components.
//
// Every change goes through Dispatch. The action passes the middleware chain
// and reaches the reducer, which returns a new State; the store swaps it in,
// bumps the version, and notifies subscribers in registration order.
// Unrecognized action types are no-ops so newer producers can talk to older
// reducers.
//
// Work that must not run on the dispatching call stack (event delivery, cache
// pruning) is scheduled on the store's Loop with Defer.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DispatchFunc applies an action.
type DispatchFunc func(Action) error

// API is the view of a store that middleware and collaborators receive.
type API interface {
	Dispatch(Action) error
	State() State
	Defer(func())
	Now() time.Time
	Logger() *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMiddleware sets the middleware chain, outermost first.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Store) {
		s.middleware = mws
	}
}

// WithLimits bounds history and the transient event queue.
func WithLimits(l Limits) Option {
	return func(s *Store) {
		s.limits = l
	}
}

// WithReducer replaces the reducer.
func WithReducer(r Reducer) Option {
	return func(s *Store) {
		s.reducer = r
	}
}

type subscriber struct {
	id uint64
	fn func(State)
}

// Store holds the current State. It is safe for concurrent use; reducer
// application is serialized.
type Store struct {
	mu        sync.RWMutex
	state     State
	pending   []State // transitions awaiting delivery, in version order
	notifying bool

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64

	reducer    Reducer
	limits     Limits
	middleware []Middleware
	dispatch   DispatchFunc
	loop       *Loop
	logger     *zap.Logger
	now        func() time.Time
}

// Compile-time interface check.
var _ API = (*Store)(nil)

// New creates a store with every key defaulted.
func New(opts ...Option) *Store {
	s := &Store{
		logger: zap.NewNop(),
		now:    time.Now,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reducer == nil {
		s.reducer = NewReducer(s.limits)
	}
	s.state = initialState(s.now())
	s.loop = NewLoop(s.logger)
	s.dispatch = Chain(s, s.middleware...)(s.apply)
	return s
}

// Chain composes middleware right to left so mws[0] runs outermost.
func Chain(api API, mws ...Middleware) func(DispatchFunc) DispatchFunc {
	return func(core DispatchFunc) DispatchFunc {
		d := core
		for i := len(mws) - 1; i >= 0; i-- {
			d = mws[i](api)(d)
		}
		return d
	}
}

// Dispatch sends a through the middleware chain to the reducer.
func (s *Store) Dispatch(a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	return s.dispatch(a)
}

// Save writes value under key.
func (s *Store) Save(key Key, value any) error {
	return s.Dispatch(SaveState{Key: key, Value: value})
}

// apply is the innermost dispatch: reduce, swap, notify. Invalid actions
// never reach the reducer, with or without the Validation middleware.
func (s *Store) apply(a Action) error {
	if err := ValidateAction(a); err != nil {
		return err
	}

	s.mu.Lock()
	next, recognized, err := s.reducer(s.state, a, s.now())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reducing %s: %w", a.Type(), err)
	}
	if !recognized {
		s.mu.Unlock()
		s.logger.Debug("ignoring unrecognized action", zap.String("action", string(a.Type())))
		return nil
	}
	s.state = next
	s.pending = append(s.pending, next)
	s.mu.Unlock()

	s.deliver()
	return nil
}

// deliver hands queued transitions to subscribers one at a time. Only one
// goroutine delivers at once; the others return after queuing, so
// subscribers always observe versions in increasing order.
func (s *Store) deliver() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.pending) > 0 {
		st := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.notify(st)
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}

func (s *Store) notify(st State) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.callSubscriber(sub, st)
	}
}

func (s *Store) callSubscriber(sub subscriber, st State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked",
				zap.Uint64("subscriber", sub.id),
				zap.Uint64("version", st.Version),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.fn(st)
}

// Subscribe registers fn for every recognized transition. Calls never
// overlap and arrive in version order. A dispatch from the goroutine that is
// delivering, including one made by a subscriber, returns before its own
// transition is delivered. The returned function removes fn.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(x subscriber) bool { return x.id == id })
		})
	}
}

// State returns the current state. Treat it as read-only.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version returns the current store version.
func (s *Store) Version() uint64 {
	return s.State().Version
}

// Value returns the value under key, or false if it was never written.
func (s *Store) Value(key Key) (any, bool) {
	return s.State().Value(key)
}

// Entry returns the entry under key.
func (s *Store) Entry(key Key) (Entry, bool) {
	e, ok := s.State().Entries[key]
	return e, ok
}

// Snapshot returns a dense copy of the current entries.
func (s *Store) Snapshot() Snapshot {
	return s.State().Snapshot(s.now())
}

// History returns up to limit of the most recent snapshots, oldest first.
// A limit <= 0 returns all of them.
func (s *Store) History(limit int) []Snapshot {
	h := s.State().History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return slices.Clone(h)
}

// Defer schedules fn on the store loop.
func (s *Store) Defer(fn func()) {
	if !s.loop.Defer(fn) {
		s.logger.Debug("dropping task deferred after close")
	}
}

// Flush waits for all deferred work to finish.
func (s *Store) Flush() {
	s.loop.Flush()
}

// Close drains deferred work and stops the loop.
func (s *Store) Close() {
	s.loop.Close()
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Logger returns the store logger.
func (s *Store) Logger() *zap.Logger {
	return s.logger
}
