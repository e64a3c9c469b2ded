// Package lock provides an advisory, single-holder lock with a FIFO queue,
// kept as plain store state.
//
// The lock guards a resource chosen by the caller, such as an output path. It
// never protects the store itself. Acquire does not block; use Wait to block
// until a queued request becomes the holder.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/chancegraff/curtains-sub000/internal/store"
)

// ErrNotQueued is returned by Wait for an id that neither holds nor waits
// for the lock.
var ErrNotQueued = errors.New("lock request is not queued")

// Manager acquires and releases the store's lock.
type Manager struct {
	st *store.Store
}

// New returns a manager over st.
func New(st *store.Store) *Manager {
	return &Manager{st: st}
}

// Acquire requests the lock for id, allocating an id when empty. The caller
// holds the lock if HasLock(id) reports true afterwards; otherwise id is
// queued.
func (m *Manager) Acquire(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := m.st.Dispatch(store.AcquireLock{RequestID: id}); err != nil {
		return "", fmt.Errorf("acquiring lock: %w", err)
	}
	return id, nil
}

// Release hands the lock to the next queued id when id holds it, or removes
// id from the queue. Unknown ids are ignored.
func (m *Manager) Release(id string) error {
	if id == "" {
		return nil
	}
	if err := m.st.Dispatch(store.ReleaseLock{RequestID: id}); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// HasLock reports whether id is the holder.
func (m *Manager) HasLock(id string) bool {
	return id != "" && m.st.State().Lock.Holder == id
}

// Holder returns the current holder, or "".
func (m *Manager) Holder() string {
	return m.st.State().Lock.Holder
}

// Queue returns the waiting ids in handoff order.
func (m *Manager) Queue() []string {
	return slices.Clone(m.st.State().Lock.Queue)
}

// Wait blocks until id holds the lock. It fails if ctx ends first or if id
// is neither holding nor queued.
func (m *Manager) Wait(ctx context.Context, id string) error {
	changed := make(chan struct{}, 1)
	unsubscribe := m.st.Subscribe(func(store.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		l := m.st.State().Lock
		if l.Holder == id {
			return nil
		}
		if !slices.Contains(l.Queue, id) {
			return fmt.Errorf("%w: %q", ErrNotQueued, id)
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// With acquires the lock for a fresh id, waits until it holds it, runs fn and
// releases the lock.
func (m *Manager) With(ctx context.Context, fn func() error) error {
	id, err := m.Acquire("")
	if err != nil {
		return err
	}
	defer func() { _ = m.Release(id) }()

	if err := m.Wait(ctx, id); err != nil {
		return err
	}
	return fn()
}
