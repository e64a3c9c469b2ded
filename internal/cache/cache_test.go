package cache_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chancegraff/curtains-sub000/internal/cache"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T) (*cache.Manager, *fakeClock, *store.Store) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := store.New(store.WithClock(clock.Now))
	t.Cleanup(st.Close)
	return cache.New(st), clock, st
}

// ---------------------------------------------------------------------------
// TTL
// ---------------------------------------------------------------------------

func TestManager_TTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ttl     time.Duration
		elapsed time.Duration
		want    bool
	}{
		{"before expiry", time.Second, 500 * time.Millisecond, true},
		{"after expiry", time.Second, 1500 * time.Millisecond, false},
		{"exactly at expiry", time.Second, time.Second, false},
		{"zero ttl never expires", 0, 24 * time.Hour, true},
		{"negative ttl never expires", -time.Second, 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, clock, _ := newManager(t)
			if err := m.Update("k", store.RawContent("v"), tt.ttl); err != nil {
				t.Fatal(err)
			}
			clock.Advance(tt.elapsed)

			v, ok := m.Get("k")
			if ok != tt.want {
				t.Fatalf("Get ok = %v, want %v", ok, tt.want)
			}
			if ok && v != store.RawContent("v") {
				t.Errorf("value = %v, want v", v)
			}
		})
	}
}

func TestManager_ReadDoesNotRefresh(t *testing.T) {
	t.Parallel()

	m, clock, _ := newManager(t)
	_ = m.Update("k", store.RawContent("v"), time.Second)

	clock.Advance(900 * time.Millisecond)
	if _, ok := m.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clock.Advance(200 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Error("read refreshed the TTL")
	}
}

func TestManager_UpdateEmptyKey(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	if err := m.Update("", store.RawContent("v"), 0); !errors.Is(err, cache.ErrEmptyKey) {
		t.Errorf("error = %v, want ErrEmptyKey", err)
	}
}

// ---------------------------------------------------------------------------
// Invalidation
// ---------------------------------------------------------------------------

func TestManager_Invalidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts cache.Options
		want []string
	}{
		{"glob", cache.Options{Pattern: "parse:*"}, []string{"render:1"}},
		{"all", cache.Options{All: true}, nil},
		{"all beats pattern", cache.Options{All: true, Pattern: "render:*"}, nil},
		{"empty options", cache.Options{}, []string{"parse:1", "parse:2", "render:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, _, _ := newManager(t)
			for _, k := range []string{"parse:1", "parse:2", "render:1"} {
				if err := m.Update(k, store.RawContent(k), 0); err != nil {
					t.Fatal(err)
				}
			}

			if err := m.Invalidate(tt.opts); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, m.Keys()); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManager_TypedValues(t *testing.T) {
	t.Parallel()

	m, _, st := newManager(t)
	before := st.Version()
	_ = m.Update("parse:x", store.ParsedContent{}, 0)
	_ = m.Update("render:x", store.RenderedContent{}, 0)

	if st.Version() != before+2 {
		t.Errorf("version = %d, want %d", st.Version(), before+2)
	}
	if _, ok := mustGet(t, m, "parse:x").(store.ParsedContent); !ok {
		t.Error("parse:x lost its type")
	}
	if _, ok := mustGet(t, m, "render:x").(store.RenderedContent); !ok {
		t.Error("render:x lost its type")
	}
}

func mustGet(t *testing.T, m *cache.Manager, key string) store.CacheValue {
	t.Helper()
	v, ok := m.Get(key)
	if !ok {
		t.Fatalf("Get(%q) missing", key)
	}
	return v
}
