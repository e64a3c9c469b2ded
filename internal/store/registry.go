package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventHandler receives a delivered event. A returned error is logged.
type EventHandler func(Event) error

// Registry is the side table of event handlers keyed by listener id. Each
// store gets its own registry; handlers are not part of state.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	attached atomic.Bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]EventHandler)}
}

// Register stores h under id, replacing any previous handler.
func (r *Registry) Register(id string, h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// Unregister removes the handler for id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// Handler returns the handler for id.
func (r *Registry) Handler(id string) (EventHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	return h, ok
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Attached reports whether an EventEmission middleware delivers for this
// registry. When it does, publishers must not deliver themselves.
func (r *Registry) Attached() bool {
	return r.attached.Load()
}

// Deliver schedules every matching handler on the loop of api. Each handler
// runs as its own task so a failing handler cannot affect the others.
func (r *Registry) Deliver(api API, listeners []Listener, evt Event) {
	for _, l := range listeners {
		if !l.Matches(evt.Type) {
			continue
		}
		h, ok := r.Handler(l.ID)
		if !ok {
			continue
		}
		id := l.ID
		api.Defer(func() { invoke(api.Logger(), id, h, evt) })
	}
}

func invoke(logger *zap.Logger, id string, h EventHandler, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event handler panicked",
				zap.String("listener", id),
				zap.String("event", string(evt.Type)),
				zap.String("panic", fmt.Sprint(rec)),
			)
		}
	}()
	if err := h(evt); err != nil {
		logger.Warn("event handler failed",
			zap.String("listener", id),
			zap.String("event", string(evt.Type)),
			zap.Error(err),
		)
	}
}
