package store

import (
	"errors"
	"fmt"
)

// ActionType tags an Action.
type ActionType string

// Action types understood by the default reducer.
const (
	ActionSetConfig       ActionType = "SET_CONFIG"
	ActionSaveState       ActionType = "SAVE_STATE"
	ActionCreateSnapshot  ActionType = "CREATE_SNAPSHOT"
	ActionRestoreSnapshot ActionType = "RESTORE_SNAPSHOT"
	ActionAddListener     ActionType = "ADD_LISTENER"
	ActionRemoveListener  ActionType = "REMOVE_LISTENER"
	ActionEmitEvent       ActionType = "EMIT_EVENT"
	ActionUpdateCache     ActionType = "UPDATE_CACHE"
	ActionInvalidateCache ActionType = "INVALIDATE_CACHE"
	ActionAcquireLock     ActionType = "ACQUIRE_LOCK"
	ActionReleaseLock     ActionType = "RELEASE_LOCK"
	ActionAddError        ActionType = "ADD_ERROR"
	ActionClearErrors     ActionType = "CLEAR_ERRORS"
	ActionAddToHistory    ActionType = "ADD_TO_HISTORY"
)

// Action is a request to transition the store. Concrete actions are plain
// values; the reducer switches on their type.
type Action interface {
	Type() ActionType
}

// validator is implemented by actions with required fields.
type validator interface {
	Validate() error
}

// ValidateAction reports whether a is structurally well formed. Unknown
// action types with a non-empty tag are valid; the reducer ignores them.
func ValidateAction(a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if a.Type() == "" {
		return fmt.Errorf("%w: empty action type", ErrInvalidAction)
	}
	if v, ok := a.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAction, a.Type(), err)
		}
	}
	return nil
}

// SetConfig replaces the runtime configuration.
type SetConfig struct {
	Config RuntimeConfig
}

// SaveState writes Value under Key.
type SaveState struct {
	Key   Key
	Value any
}

// CreateSnapshot appends a snapshot of the current entries to history.
type CreateSnapshot struct{}

// RestoreSnapshot replaces the entries with the snapshot taken at Version.
type RestoreSnapshot struct {
	Version uint64
}

// AddListener records a listener. A listener with the same ID is replaced.
type AddListener struct {
	Listener Listener
}

// RemoveListener drops the listener with ID.
type RemoveListener struct {
	ID string
}

// EmitEvent appends Event to the transient event queue.
type EmitEvent struct {
	Event Event
}

// UpdateCache inserts or replaces one cache entry.
type UpdateCache struct {
	Entry CacheEntry
}

// InvalidateCache removes cache entries. All wins over Pattern and Keys.
type InvalidateCache struct {
	Keys    []string
	Pattern string
	All     bool
}

// AcquireLock requests the advisory lock for RequestID.
type AcquireLock struct {
	RequestID string
}

// ReleaseLock releases or dequeues RequestID.
type ReleaseLock struct {
	RequestID string
}

// AddError appends to the errors log.
type AddError struct {
	Error StateError
}

// ClearErrors empties the errors log.
type ClearErrors struct{}

// AddToHistory appends an existing snapshot to history.
type AddToHistory struct {
	Snapshot Snapshot
}

// Type methods tie each action struct to its ActionType.
func (SetConfig) Type() ActionType       { return ActionSetConfig }
func (SaveState) Type() ActionType       { return ActionSaveState }
func (CreateSnapshot) Type() ActionType  { return ActionCreateSnapshot }
func (RestoreSnapshot) Type() ActionType { return ActionRestoreSnapshot }
func (AddListener) Type() ActionType     { return ActionAddListener }
func (RemoveListener) Type() ActionType  { return ActionRemoveListener }
func (EmitEvent) Type() ActionType       { return ActionEmitEvent }
func (UpdateCache) Type() ActionType     { return ActionUpdateCache }
func (InvalidateCache) Type() ActionType { return ActionInvalidateCache }
func (AcquireLock) Type() ActionType     { return ActionAcquireLock }
func (ReleaseLock) Type() ActionType     { return ActionReleaseLock }
func (AddError) Type() ActionType        { return ActionAddError }
func (ClearErrors) Type() ActionType     { return ActionClearErrors }
func (AddToHistory) Type() ActionType    { return ActionAddToHistory }

// Validate requires a known key.
func (a SaveState) Validate() error {
	if !a.Key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKey, a.Key)
	}
	return nil
}

// Validate requires a snapshot version.
func (a RestoreSnapshot) Validate() error {
	if a.Version == 0 {
		return errors.New("version is required")
	}
	return nil
}

// Validate requires the listener id and event.
func (a AddListener) Validate() error {
	if a.Listener.ID == "" || a.Listener.Event == "" {
		return errors.New("listener id and event are required")
	}
	return nil
}

// Validate requires the listener id.
func (a RemoveListener) Validate() error {
	if a.ID == "" {
		return errors.New("listener id is required")
	}
	return nil
}

// Validate requires an event type.
func (a EmitEvent) Validate() error {
	if a.Event.Type == "" {
		return errors.New("event type is required")
	}
	return nil
}

// Validate requires a cache key and value.
func (a UpdateCache) Validate() error {
	if a.Entry.Key == "" {
		return errors.New("cache key is required")
	}
	if a.Entry.Value == nil {
		return errors.New("cache value is required")
	}
	return nil
}

// Validate requires a selector: All, a pattern or explicit keys.
func (a InvalidateCache) Validate() error {
	if !a.All && a.Pattern == "" && len(a.Keys) == 0 {
		return errors.New("one of all, pattern or keys is required")
	}
	return nil
}

// Validate requires a request id.
func (a AcquireLock) Validate() error {
	if a.RequestID == "" {
		return errors.New("request id is required")
	}
	return nil
}

// Validate requires a request id.
func (a ReleaseLock) Validate() error {
	if a.RequestID == "" {
		return errors.New("request id is required")
	}
	return nil
}

// Validate requires an error code and message.
func (a AddError) Validate() error {
	if a.Error.Code == "" || a.Error.Message == "" {
		return errors.New("error code and message are required")
	}
	return nil
}

// Validate requires snapshot entries.
func (a AddToHistory) Validate() error {
	if a.Snapshot.Entries == nil {
		return errors.New("snapshot entries are required")
	}
	return nil
}
