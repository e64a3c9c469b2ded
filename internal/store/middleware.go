package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Middleware wraps dispatch with one cross-cutting concern.
type Middleware func(api API) func(next DispatchFunc) DispatchFunc

// SlowDispatchThreshold is the duration above which Performance logs.
const SlowDispatchThreshold = 10 * time.Millisecond

// DispatchObserver receives dispatch timings.
type DispatchObserver interface {
	ObserveDispatch(action ActionType, d time.Duration)
}

// DefaultMiddleware returns the standard chain, outermost first.
// obs may be nil.
func DefaultMiddleware(reg *Registry, obs DispatchObserver) []Middleware {
	return []Middleware{
		Validation(),
		ErrorCapture(),
		Performance(SlowDispatchThreshold, obs),
		EventEmission(reg),
		CachePruning(),
	}
}

// DebugMiddleware is DefaultMiddleware with Logging in front.
func DebugMiddleware(reg *Registry, obs DispatchObserver) []Middleware {
	return append([]Middleware{Logging()}, DefaultMiddleware(reg, obs)...)
}

// Validation drops structurally invalid actions before anything downstream
// sees them.
func Validation() Middleware {
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				if err := ValidateAction(a); err != nil {
					api.Logger().Debug("rejected action", zap.Error(err))
					return err
				}
				return next(a)
			}
		}
	}
}

// ErrorCapture records downstream failures, including panics, into the
// errors log and reports success to the caller. A failing ADD_ERROR is only
// logged, so capture never recurses.
func ErrorCapture() Middleware {
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
					if err == nil {
						return
					}
					if a.Type() == ActionAddError {
						api.Logger().Error("recording error failed", zap.Error(err))
						err = nil
						return
					}
					rec := StateError{
						Code:    CodeDispatchError,
						Message: err.Error(),
						Source:  string(a.Type()),
					}
					if dErr := api.Dispatch(AddError{Error: rec}); dErr != nil {
						api.Logger().Error("recording error failed", zap.Error(dErr))
					}
					err = nil
				}()
				return next(a)
			}
		}
	}
}

// Performance times downstream dispatch and logs slow actions.
func Performance(threshold time.Duration, obs DispatchObserver) Middleware {
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				start := time.Now()
				err := next(a)
				elapsed := time.Since(start)
				if obs != nil {
					obs.ObserveDispatch(a.Type(), elapsed)
				}
				if elapsed > threshold {
					api.Logger().Warn("slow dispatch",
						zap.String("action", string(a.Type())),
						zap.Duration("elapsed", elapsed),
					)
				}
				return err
			}
		}
	}
}

// EventEmission delivers EMIT_EVENT actions to matching handlers in reg
// after the transition, on the store loop. It also drops a handler when its
// REMOVE_LISTENER passes through.
func EventEmission(reg *Registry) Middleware {
	reg.attached.Store(true)
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				if err := next(a); err != nil {
					return err
				}
				switch act := a.(type) {
				case EmitEvent:
					evt := act.Event
					if evt.Timestamp.IsZero() {
						evt.Timestamp = api.Now()
					}
					reg.Deliver(api, api.State().Listeners, evt)
				case RemoveListener:
					reg.Unregister(act.ID)
				}
				return nil
			}
		}
	}
}

// CachePruning schedules an INVALIDATE_CACHE for expired entries after each
// UPDATE_CACHE.
func CachePruning() Middleware {
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				if err := next(a); err != nil {
					return err
				}
				if _, ok := a.(UpdateCache); !ok {
					return nil
				}
				now := api.Now()
				var expired []string
				for k, e := range api.State().Cache() {
					if e.Expired(now) {
						expired = append(expired, k)
					}
				}
				if len(expired) == 0 {
					return nil
				}
				api.Defer(func() {
					if err := api.Dispatch(InvalidateCache{Keys: expired}); err != nil {
						api.Logger().Warn("pruning cache failed", zap.Error(err))
					}
				})
				return nil
			}
		}
	}
}

// Logging logs every action with the version before and after.
func Logging() Middleware {
	return func(api API) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) error {
				before := api.State()
				err := next(a)
				after := api.State()
				api.Logger().Debug("dispatch",
					zap.String("action", string(a.Type())),
					zap.String("payload", fmt.Sprintf("%+v", a)),
					zap.Uint64("before", before.Version),
					zap.Uint64("after", after.Version),
					zap.Int("listeners", len(after.Listeners)),
					zap.Int("errors", len(after.Errors())),
					zap.Error(err),
				)
				return err
			}
		}
	}
}
