package store

import (
	"sync"
	"testing"
)

func TestLoop_RunsTasksInOrder(t *testing.T) {
	t.Parallel()

	l := NewLoop(nil)
	defer l.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 10 {
		l.Defer(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	l.Flush()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want ascending order", got)
		}
	}
	if len(got) != 10 {
		t.Errorf("ran %d tasks, want 10", len(got))
	}
}

func TestLoop_FlushWaitsForNestedTasks(t *testing.T) {
	t.Parallel()

	l := NewLoop(nil)
	defer l.Close()

	done := false
	l.Defer(func() {
		l.Defer(func() { done = true })
	})
	l.Flush()

	if !done {
		t.Error("nested task did not run before Flush returned")
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	t.Parallel()

	l := NewLoop(nil)
	defer l.Close()

	ran := false
	l.Defer(func() { panic("boom") })
	l.Defer(func() { ran = true })
	l.Flush()

	if !ran {
		t.Error("task after panicking task did not run")
	}
}

func TestLoop_CloseDrainsAndRejects(t *testing.T) {
	t.Parallel()

	l := NewLoop(nil)
	ran := false
	l.Defer(func() { ran = true })
	l.Close()

	if !ran {
		t.Error("pending task dropped by Close")
	}
	if l.Defer(func() {}) {
		t.Error("Defer after Close returned true")
	}
	l.Close()
}
