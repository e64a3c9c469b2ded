package store

import "errors"

// Sentinel errors for store operations.
var (
	ErrInvalidAction    = errors.New("invalid action")
	ErrUnknownKey       = errors.New("unknown state key")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Error codes recorded under KeyErrors by the store itself.
const (
	CodeDispatchError = "DISPATCH_ERROR"
)
