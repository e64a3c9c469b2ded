package orchestrator

import (
	"errors"
	"strings"
)

// Sentinel errors for pipeline construction and execution.
var (
	ErrEmptyQueue        = errors.New("operation queue is empty")
	ErrUnknownStageType  = errors.New("unknown stage type")
	ErrNoHandler         = errors.New("no handler registered for stage type")
	ErrMissingInput      = errors.New("stage input is not available")
	ErrInvalidOutput     = errors.New("stage output rejected")
	ErrStuckPipeline     = errors.New("pipeline is stuck: no stage is ready")
	ErrStageTimeout      = errors.New("stage timed out")
	ErrPipelineTimeout   = errors.New("pipeline timed out")
	ErrStageNotFound     = errors.New("stage not found")
	ErrUnknownDependency = errors.New("stage depends on an unknown stage")
	ErrAlreadyRunning    = errors.New("coordinator is already running")
)

// Structured error codes recorded in the store's errors log.
const (
	CodeNoConfig         = "NO_CONFIG"
	CodeNoQueue          = "NO_QUEUE"
	CodeCoordinatorError = "COORDINATOR_ERROR"
)

// StageErrorCode returns the errors-log code for a failed stage of type t,
// such as PARSE_ERROR.
func StageErrorCode(t StageType) string {
	return strings.ToUpper(string(t)) + "_ERROR"
}
