// Package cache manages keyed, TTL-bounded values in the store's cache map.
//
// The manager owns no data of its own: every read goes to the current store
// state and every write is an action, so cache contents appear in snapshots
// and are pruned by the store's CachePruning middleware.
package cache

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/chancegraff/curtains-sub000/internal/store"
)

// ErrEmptyKey is returned when updating with an empty key.
var ErrEmptyKey = errors.New("cache key is empty")

// Options selects entries to invalidate. All wins over Pattern.
type Options struct {
	Pattern string
	All     bool
}

// Manager reads and writes the store's cache.
type Manager struct {
	st  *store.Store
	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for expiry checks. Defaults to the
// store clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a manager over st.
func New(st *store.Store, opts ...Option) *Manager {
	m := &Manager{st: st, now: st.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value under key unless it is missing or expired. Reads do
// not refresh the TTL.
func (m *Manager) Get(key string) (store.CacheValue, bool) {
	e, ok := m.st.State().Cache()[key]
	if !ok || e.Expired(m.now()) {
		return nil, false
	}
	return e.Value, true
}

// Update inserts or replaces key. A ttl <= 0 never expires.
func (m *Manager) Update(key string, value store.CacheValue, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	entry := store.CacheEntry{Key: key, Value: value, TTL: ttl, Created: m.now()}
	if err := m.st.Dispatch(store.UpdateCache{Entry: entry}); err != nil {
		return fmt.Errorf("updating cache %q: %w", key, err)
	}
	return nil
}

// Invalidate removes every entry when opts.All is set, otherwise the entries
// whose keys match opts.Pattern.
func (m *Manager) Invalidate(opts Options) error {
	if !opts.All && opts.Pattern == "" {
		return nil
	}
	act := store.InvalidateCache{Pattern: opts.Pattern, All: opts.All}
	if err := m.st.Dispatch(act); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	return nil
}

// Keys returns the sorted keys of live entries.
func (m *Manager) Keys() []string {
	now := m.now()
	var keys []string
	for k, e := range m.st.State().Cache() {
		if !e.Expired(now) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries, expired ones included.
func (m *Manager) Len() int {
	return len(m.st.State().Cache())
}
