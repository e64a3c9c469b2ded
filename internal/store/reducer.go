package store

import (
	"fmt"
	"slices"
	"time"
)

// Default bounds for history and the transient event queue.
const (
	DefaultHistoryLimit    = 100
	DefaultEventQueueLimit = 50
)

// Reducer computes the next state for an action. It must not mutate s.
// recognized is false for action types it does not handle; the store then
// leaves the state and version untouched.
type Reducer func(s State, a Action, now time.Time) (next State, recognized bool, err error)

// Limits bounds the collections a reducer keeps.
type Limits struct {
	History int
	Events  int
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{History: DefaultHistoryLimit, Events: DefaultEventQueueLimit}
}

// NewReducer returns the reducer for the built-in action set.
func NewReducer(l Limits) Reducer {
	if l.History <= 0 {
		l.History = DefaultHistoryLimit
	}
	if l.Events <= 0 {
		l.Events = DefaultEventQueueLimit
	}

	return func(s State, a Action, now time.Time) (State, bool, error) {
		switch act := a.(type) {
		case SetConfig:
			return s.advance(now).withEntry(KeyRuntime, act.Config, now), true, nil

		case SaveState:
			if !act.Key.Valid() {
				return s, false, fmt.Errorf("%w: %q", ErrUnknownKey, act.Key)
			}
			return s.advance(now).withEntry(act.Key, act.Value, now), true, nil

		case CreateSnapshot:
			snap := s.Snapshot(now)
			next := s.advance(now)
			next.History = appendBounded(s.History, snap, l.History)
			return next, true, nil

		case RestoreSnapshot:
			idx := slices.IndexFunc(s.History, func(h Snapshot) bool { return h.Version == act.Version })
			if idx < 0 {
				return s, false, fmt.Errorf("%w: version %d", ErrSnapshotNotFound, act.Version)
			}
			next := s.advance(now)
			entries := make(map[Key]Entry, len(allKeys))
			for _, k := range allKeys {
				entries[k] = s.History[idx].Entries[k]
			}
			next.Entries = entries
			return next, true, nil

		case AddListener:
			next := s.advance(now)
			listeners := slices.DeleteFunc(slices.Clone(s.Listeners), func(l Listener) bool {
				return l.ID == act.Listener.ID
			})
			next.Listeners = append(listeners, act.Listener)
			return next, true, nil

		case RemoveListener:
			next := s.advance(now)
			next.Listeners = slices.DeleteFunc(slices.Clone(s.Listeners), func(l Listener) bool {
				return l.ID == act.ID
			})
			return next, true, nil

		case EmitEvent:
			evt := act.Event
			if evt.Timestamp.IsZero() {
				evt.Timestamp = now
			}
			next := s.advance(now)
			next.Events = appendBounded(s.Events, evt, l.Events)
			return next, true, nil

		case UpdateCache:
			cache := cloneCache(s.Cache())
			entry := act.Entry
			if entry.Created.IsZero() {
				entry.Created = now
			}
			cache[entry.Key] = entry
			return s.advance(now).withEntry(KeyCache, cache, now), true, nil

		case InvalidateCache:
			return s.advance(now).withEntry(KeyCache, invalidate(s.Cache(), act), now), true, nil

		case AcquireLock:
			next := s.advance(now)
			next.Lock = acquire(s.Lock, act.RequestID)
			return next, true, nil

		case ReleaseLock:
			next := s.advance(now)
			next.Lock = release(s.Lock, act.RequestID)
			return next, true, nil

		case AddError:
			rec := act.Error
			if rec.Timestamp.IsZero() {
				rec.Timestamp = now
			}
			errs := append(slices.Clone(s.Errors()), rec)
			return s.advance(now).withEntry(KeyErrors, errs, now), true, nil

		case ClearErrors:
			return s.advance(now).withEntry(KeyErrors, []StateError{}, now), true, nil

		case AddToHistory:
			next := s.advance(now)
			next.History = appendBounded(s.History, act.Snapshot, l.History)
			return next, true, nil

		default:
			return s, false, nil
		}
	}
}

// advance returns a copy of s at the next version.
func (s State) advance(now time.Time) State {
	s.Version++
	s.LastModified = now
	return s
}

// withEntry returns a copy of s with key set to value at the current version.
func (s State) withEntry(key Key, value any, now time.Time) State {
	entries := make(map[Key]Entry, len(s.Entries)+1)
	for k, e := range s.Entries {
		entries[k] = e
	}
	entries[key] = Entry{
		Key:       key,
		Value:     value,
		Version:   s.Version,
		Timestamp: now,
		Checksum:  Checksum(value),
	}
	s.Entries = entries
	return s
}

func appendBounded[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, min(len(items)+1, limit))
	if drop := len(items) + 1 - limit; drop > 0 {
		items = items[drop:]
	}
	out = append(out, items...)
	return append(out, item)
}

func cloneCache(m CacheMap) CacheMap {
	out := make(CacheMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func invalidate(m CacheMap, act InvalidateCache) CacheMap {
	if act.All {
		return CacheMap{}
	}
	out := cloneCache(m)
	for _, k := range act.Keys {
		delete(out, k)
	}
	if act.Pattern != "" {
		re := GlobToRegexp(act.Pattern)
		for k := range out {
			if re.MatchString(k) {
				delete(out, k)
			}
		}
	}
	return out
}

func acquire(l LockState, id string) LockState {
	if l.Holder == "" {
		return LockState{Holder: id}
	}
	if l.Holder == id || slices.Contains(l.Queue, id) {
		return l
	}
	return LockState{Holder: l.Holder, Queue: append(slices.Clone(l.Queue), id)}
}

func release(l LockState, id string) LockState {
	if l.Holder == id {
		if len(l.Queue) == 0 {
			return LockState{}
		}
		return LockState{Holder: l.Queue[0], Queue: slices.Clone(l.Queue[1:])}
	}
	idx := slices.Index(l.Queue, id)
	if idx < 0 {
		return l
	}
	return LockState{Holder: l.Holder, Queue: slices.Delete(slices.Clone(l.Queue), idx, idx+1)}
}
