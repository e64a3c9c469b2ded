package store

import (
	"time"

	"github.com/chancegraff/curtains-sub000/internal/slides"
)

// Key names one slot of the store. The set is closed.
type Key string

// State keys.
const (
	KeyRuntime        Key = "runtime"
	KeyQueue          Key = "queue"
	KeyAST            Key = "ast"
	KeyTransformed    Key = "transformed"
	KeyRendered       Key = "rendered"
	KeyErrors         Key = "errors"
	KeyCache          Key = "cache"
	KeyOutput         Key = "output"
	KeyPipeline       Key = "pipeline"
	KeyPipelineResult Key = "pipeline-result"
)

var allKeys = []Key{
	KeyRuntime, KeyQueue, KeyAST, KeyTransformed, KeyRendered,
	KeyErrors, KeyCache, KeyOutput, KeyPipeline, KeyPipelineResult,
}

// Keys returns every state key in declaration order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// Valid reports whether k is one of the known keys.
func (k Key) Valid() bool {
	for _, known := range allKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Entry is the live value stored under a key.
type Entry struct {
	Key       Key
	Value     any
	Version   uint64 // store version when written; 0 = never written
	Timestamp time.Time
	Checksum  string
}

// Snapshot is a dense copy of every entry at one store version.
type Snapshot struct {
	Entries   map[Key]Entry
	Version   uint64
	Timestamp time.Time
}

// StateError is one record of the errors log.
type StateError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RuntimeConfig is the per-run configuration written under KeyRuntime.
type RuntimeConfig struct {
	Theme       string        `json:"theme"`
	CSS         string        `json:"css,omitempty"`
	AssetPath   string        `json:"assetPath,omitempty"`
	Parallel    bool          `json:"parallel"`
	RetryLimit  int           `json:"retryLimit"` // 0 = default, < 0 = no retries
	Timeout     time.Duration `json:"timeout"`
	BackoffUnit time.Duration `json:"backoffUnit"`
	Sanitize    bool          `json:"sanitize"`
	Debug       bool          `json:"debug"`
}

// EventType names an event. Wildcard listeners receive every event.
type EventType string

// Wildcard matches every event type when used as a listener's event.
const Wildcard EventType = "*"

// Event is a published notification. Events are ephemeral; the store keeps
// only a short transient queue for debugging.
type Event struct {
	Type      EventType
	Payload   any
	Timestamp time.Time
	Source    string
}

// Listener records that a handler with ID is interested in Event. The handler
// itself lives in a Registry, outside of state.
type Listener struct {
	ID    string
	Event EventType
}

// Matches reports whether the listener should receive t.
func (l Listener) Matches(t EventType) bool {
	return l.Event == t || l.Event == Wildcard
}

// LockState is the advisory lock. An empty Holder implies an empty Queue.
type LockState struct {
	Holder string
	Queue  []string
}

// CacheValue is the closed set of values the cache may hold.
type CacheValue interface {
	cacheValue()
}

// RawContent caches plain string content.
type RawContent string

// ParsedContent caches a parse stage result.
type ParsedContent struct{ Document *slides.Document }

// TransformedContent caches a transform stage result.
type TransformedContent struct{ Transformed *slides.Transformed }

// RenderedContent caches a render stage result.
type RenderedContent struct{ Rendered *slides.Rendered }

func (RawContent) cacheValue()         {}
func (ParsedContent) cacheValue()      {}
func (TransformedContent) cacheValue() {}
func (RenderedContent) cacheValue()    {}

// CacheEntry is one cached value with its time-to-live.
type CacheEntry struct {
	Key     string
	Value   CacheValue
	TTL     time.Duration // <= 0 never expires
	Created time.Time
}

// Expired reports whether the entry is stale at now.
func (e CacheEntry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.Created) >= e.TTL
}

// CacheMap is the value stored under KeyCache.
type CacheMap map[string]CacheEntry

// State is the full store contents. Maps and slices in a State are shared
// between versions and must be treated as read-only.
type State struct {
	Entries      map[Key]Entry
	Version      uint64
	LastModified time.Time
	History      []Snapshot
	Listeners    []Listener
	Events       []Event
	Lock         LockState
}

// Value returns the value under key, or false if it was never written.
func (s State) Value(key Key) (any, bool) {
	e, ok := s.Entries[key]
	if !ok || e.Version == 0 {
		return nil, false
	}
	return e.Value, true
}

// Runtime returns the runtime config if one was written.
func (s State) Runtime() (RuntimeConfig, bool) {
	v, ok := s.Value(KeyRuntime)
	if !ok {
		return RuntimeConfig{}, false
	}
	cfg, ok := v.(RuntimeConfig)
	return cfg, ok
}

// Errors returns the accumulated error log.
func (s State) Errors() []StateError {
	v := s.Entries[KeyErrors]
	errs, _ := v.Value.([]StateError)
	return errs
}

// Cache returns the cache map. Never nil.
func (s State) Cache() CacheMap {
	v := s.Entries[KeyCache]
	if m, ok := v.Value.(CacheMap); ok && m != nil {
		return m
	}
	return CacheMap{}
}

// Snapshot returns a dense point-in-time copy of the entries.
func (s State) Snapshot(now time.Time) Snapshot {
	entries := make(map[Key]Entry, len(allKeys))
	for _, k := range allKeys {
		entries[k] = s.Entries[k]
	}
	return Snapshot{Entries: entries, Version: s.Version, Timestamp: now}
}

// initialState returns a state with every key defaulted.
func initialState(now time.Time) State {
	entries := make(map[Key]Entry, len(allKeys))
	for _, k := range allKeys {
		entries[k] = Entry{Key: k, Timestamp: now}
	}
	e := entries[KeyErrors]
	e.Value = []StateError{}
	entries[KeyErrors] = e
	c := entries[KeyCache]
	c.Value = CacheMap{}
	entries[KeyCache] = c
	return State{Entries: entries, LastModified: now}
}
