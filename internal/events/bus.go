// Package events is the typed publish/subscribe layer on top of the store.
//
// Publishing records the event in the store's transient queue through an
// EMIT_EVENT dispatch; handlers run later on the store loop, never inside
// Emit, so a handler may dispatch freely.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chancegraff/curtains-sub000/internal/store"
)

// ErrNilHandler is returned by Subscribe for a nil handler.
var ErrNilHandler = errors.New("nil event handler")

// Handler receives a delivered event.
type Handler = store.EventHandler

// Bus publishes events through a store and delivers them to handlers kept in
// a per-store registry.
type Bus struct {
	st     *store.Store
	reg    *store.Registry
	source string
	logger *zap.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithSource sets the Source stamped on emitted events.
func WithSource(source string) Option {
	return func(b *Bus) { b.source = source }
}

// WithLogger sets the bus logger. Defaults to the store's.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates a bus over st. reg must be the registry given to the
// store's EventEmission middleware, if it has one.
func NewBus(st *store.Store, reg *store.Registry, opts ...Option) *Bus {
	if reg == nil {
		reg = store.NewRegistry()
	}
	b := &Bus{st: st, reg: reg, source: "bus", logger: st.Logger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store returns the underlying store.
func (b *Bus) Store() *store.Store { return b.st }

// Emit publishes an event of type t.
func (b *Bus) Emit(t store.EventType, payload any) error {
	evt := store.Event{
		Type:      t,
		Payload:   payload,
		Timestamp: b.st.Now(),
		Source:    b.source,
	}
	if err := b.st.Dispatch(store.EmitEvent{Event: evt}); err != nil {
		return fmt.Errorf("emitting %s: %w", t, err)
	}
	if !b.reg.Attached() {
		b.reg.Deliver(b.st, b.st.State().Listeners, evt)
	}
	b.logger.Debug("event emitted", zap.String("event", string(t)))
	return nil
}

// Subscribe registers h for events of type t; use store.Wildcard for all
// events. The returned function unsubscribes and is safe to call twice.
func (b *Bus) Subscribe(t store.EventType, h Handler) (unsubscribe func(), err error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	id := uuid.NewString()
	b.reg.Register(id, h)
	if err := b.st.Dispatch(store.AddListener{Listener: store.Listener{ID: id, Event: t}}); err != nil {
		b.reg.Unregister(id)
		return nil, fmt.Errorf("subscribing to %s: %w", t, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}, nil
}

func (b *Bus) unsubscribe(id string) {
	if err := b.st.Dispatch(store.RemoveListener{ID: id}); err != nil {
		b.logger.Warn("removing listener failed", zap.String("listener", id), zap.Error(err))
	}
	b.reg.Unregister(id)
}

// Once waits for the first event of any of the given types. To wait for an
// event caused by your own next call, subscribe first with Await.
func (b *Bus) Once(ctx context.Context, types ...store.EventType) (store.Event, error) {
	wait, cancel, err := b.Await(types...)
	if err != nil {
		return store.Event{}, err
	}
	defer cancel()
	return wait(ctx)
}

// Await subscribes to types now and returns a function that blocks until the
// first matching event. cancel releases the subscriptions.
func (b *Bus) Await(types ...store.EventType) (wait func(context.Context) (store.Event, error), cancel func(), err error) {
	ch := make(chan store.Event, 1)
	var unsubs []func()
	cancel = func() {
		for _, u := range unsubs {
			u()
		}
	}
	for _, t := range types {
		u, err := b.Subscribe(t, func(e store.Event) error {
			select {
			case ch <- e:
			default:
			}
			return nil
		})
		if err != nil {
			cancel()
			return nil, nil, err
		}
		unsubs = append(unsubs, u)
	}

	wait = func(ctx context.Context) (store.Event, error) {
		select {
		case e := <-ch:
			return e, nil
		case <-ctx.Done():
			return store.Event{}, ctx.Err()
		}
	}
	return wait, cancel, nil
}
