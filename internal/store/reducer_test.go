package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type unknownAction struct{}

func (unknownAction) Type() ActionType { return "FUTURE_ACTION" }

// ---------------------------------------------------------------------------
// Version
// ---------------------------------------------------------------------------

func TestReducer_VersionIsMonotonic(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)

	actions := []struct {
		action     Action
		recognized bool
	}{
		{SetConfig{Config: RuntimeConfig{Theme: "default"}}, true},
		{unknownAction{}, false},
		{SaveState{Key: KeyQueue, Value: []string{"parse"}}, true},
		{CreateSnapshot{}, true},
		{unknownAction{}, false},
		{AcquireLock{RequestID: "a"}, true},
		{ClearErrors{}, true},
	}

	for i, step := range actions {
		before := s.Version
		next, recognized, err := reduce(s, step.action, epoch)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if recognized != step.recognized {
			t.Fatalf("step %d: recognized = %v, want %v", i, recognized, step.recognized)
		}
		want := before
		if step.recognized {
			want++
		}
		if next.Version != want {
			t.Errorf("step %d: version = %d, want %d", i, next.Version, want)
		}
		s = next
	}
}

func TestReducer_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)

	next, _, err := reduce(s, SaveState{Key: KeyOutput, Value: "x"}, epoch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Value(KeyOutput); ok {
		t.Error("input state was modified")
	}
	if v, ok := next.Value(KeyOutput); !ok || v != "x" {
		t.Errorf("next value = %v, %v; want x, true", v, ok)
	}
}

func TestReducer_SaveStateUnknownKey(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	_, _, err := reduce(initialState(epoch), SaveState{Key: "bogus"}, epoch)
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error = %v, want ErrUnknownKey", err)
	}
}

func TestReducer_EntryCarriesVersionAndChecksum(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s, _, _ := reduce(initialState(epoch), SaveState{Key: KeyAST, Value: map[string]int{"a": 1}}, epoch)

	e := s.Entries[KeyAST]
	if e.Version != s.Version {
		t.Errorf("entry version = %d, want %d", e.Version, s.Version)
	}
	if e.Checksum == "" {
		t.Error("checksum is empty")
	}
	if e.Checksum != Checksum(map[string]int{"a": 1}) {
		t.Error("checksum is not stable for equal values")
	}
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestReducer_SnapshotIsDense(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s, _, _ := reduce(initialState(epoch), CreateSnapshot{}, epoch)

	if len(s.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.History))
	}
	for _, k := range Keys() {
		if _, ok := s.History[0].Entries[k]; !ok {
			t.Errorf("snapshot missing key %q", k)
		}
	}
}

func TestReducer_RestoreSnapshot(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)
	s, _, _ = reduce(s, SaveState{Key: KeyOutput, Value: "first"}, epoch)
	s, _, _ = reduce(s, CreateSnapshot{}, epoch)
	snapVersion := s.History[0].Version
	s, _, _ = reduce(s, SaveState{Key: KeyOutput, Value: "second"}, epoch)

	restored, ok, err := reduce(s, RestoreSnapshot{Version: snapVersion}, epoch)
	if err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}
	if v, _ := restored.Value(KeyOutput); v != "first" {
		t.Errorf("output = %v, want first", v)
	}
	if restored.Version != s.Version+1 {
		t.Errorf("version = %d, want %d", restored.Version, s.Version+1)
	}

	_, _, err = reduce(s, RestoreSnapshot{Version: 999}, epoch)
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestReducer_HistoryIsBounded(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(Limits{History: 3, Events: 2})
	s := initialState(epoch)
	for range 5 {
		s, _, _ = reduce(s, CreateSnapshot{}, epoch)
		s, _, _ = reduce(s, EmitEvent{Event: Event{Type: "tick"}}, epoch)
	}

	if len(s.History) != 3 {
		t.Errorf("history length = %d, want 3", len(s.History))
	}
	if len(s.Events) != 2 {
		t.Errorf("events length = %d, want 2", len(s.Events))
	}
	if s.History[0].Version >= s.History[2].Version {
		t.Error("history is not oldest first")
	}
}

// ---------------------------------------------------------------------------
// Lock
// ---------------------------------------------------------------------------

func TestReducer_LockFIFO(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)
	step := func(a Action) {
		t.Helper()
		var err error
		s, _, err = reduce(s, a, epoch)
		if err != nil {
			t.Fatalf("%s: %v", a.Type(), err)
		}
	}

	step(AcquireLock{RequestID: "X"})
	step(AcquireLock{RequestID: "Y"})
	step(AcquireLock{RequestID: "Z"})
	step(AcquireLock{RequestID: "Y"})

	want := LockState{Holder: "X", Queue: []string{"Y", "Z"}}
	if diff := cmp.Diff(want, s.Lock); diff != "" {
		t.Fatalf("lock mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		release string
		want    LockState
	}{
		{"nobody", LockState{Holder: "X", Queue: []string{"Y", "Z"}}},
		{"X", LockState{Holder: "Y", Queue: []string{"Z"}}},
		{"Y", LockState{Holder: "Z", Queue: []string{}}},
		{"Z", LockState{}},
	}
	for _, tt := range tests {
		step(ReleaseLock{RequestID: tt.release})
		if diff := cmp.Diff(tt.want, s.Lock, cmpEmptySlices); diff != "" {
			t.Errorf("after release %s (-want +got):\n%s", tt.release, diff)
		}
	}
}

func TestReducer_ReleaseQueuedWithoutHandoff(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)
	for _, id := range []string{"A", "B", "C"} {
		s, _, _ = reduce(s, AcquireLock{RequestID: id}, epoch)
	}
	s, _, _ = reduce(s, ReleaseLock{RequestID: "B"}, epoch)

	want := LockState{Holder: "A", Queue: []string{"C"}}
	if diff := cmp.Diff(want, s.Lock); diff != "" {
		t.Errorf("lock mismatch (-want +got):\n%s", diff)
	}
}

var cmpEmptySlices = cmp.Comparer(func(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return cmp.Equal([]string(a), []string(b))
})

// ---------------------------------------------------------------------------
// Cache and errors
// ---------------------------------------------------------------------------

func TestReducer_InvalidateCache(t *testing.T) {
	t.Parallel()

	seed := func() State {
		reduce := NewReducer(DefaultLimits())
		s := initialState(epoch)
		for _, k := range []string{"parse:1", "parse:2", "render:1"} {
			s, _, _ = reduce(s, UpdateCache{Entry: CacheEntry{Key: k, Value: RawContent(k)}}, epoch)
		}
		return s
	}

	tests := []struct {
		name   string
		action InvalidateCache
		want   []string
	}{
		{"pattern", InvalidateCache{Pattern: "parse:*"}, []string{"render:1"}},
		{"single char", InvalidateCache{Pattern: "parse:?"}, []string{"render:1"}},
		{"keys", InvalidateCache{Keys: []string{"parse:2"}}, []string{"parse:1", "render:1"}},
		{"all", InvalidateCache{All: true}, nil},
		{"no match", InvalidateCache{Pattern: "parse"}, []string{"parse:1", "parse:2", "render:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reduce := NewReducer(DefaultLimits())
			s, _, err := reduce(seed(), tt.action, epoch)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, k := range tt.want {
				if _, ok := s.Cache()[k]; !ok {
					t.Errorf("missing %q", k)
				}
			}
			if len(s.Cache()) != len(tt.want) {
				t.Errorf("cache size = %d, want %d", len(s.Cache()), len(tt.want))
			}
		})
	}
}

func TestReducer_ErrorsAccumulateUntilCleared(t *testing.T) {
	t.Parallel()

	reduce := NewReducer(DefaultLimits())
	s := initialState(epoch)
	s, _, _ = reduce(s, AddError{Error: StateError{Code: "A", Message: "one"}}, epoch)
	s, _, _ = reduce(s, AddError{Error: StateError{Code: "B", Message: "two"}}, epoch)

	if got := len(s.Errors()); got != 2 {
		t.Fatalf("errors = %d, want 2", got)
	}
	if s.Errors()[0].Timestamp.IsZero() {
		t.Error("error timestamp not set")
	}

	s, _, _ = reduce(s, ClearErrors{}, epoch)
	if got := len(s.Errors()); got != 0 {
		t.Errorf("errors after clear = %d, want 0", got)
	}
}
