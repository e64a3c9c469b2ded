package events

import (
	"time"

	"github.com/chancegraff/curtains-sub000/internal/store"
)

// Event types published by the orchestration core.
const (
	StartPipeline       store.EventType = "start-pipeline"
	StageStarted        store.EventType = "stage-started"
	StageRetry          store.EventType = "stage-retry"
	PipelineStarted     store.EventType = "pipeline-started"
	PipelineProgress    store.EventType = "pipeline-progress"
	PipelineComplete    store.EventType = "pipeline-complete"
	PipelineFailed      store.EventType = "pipeline-failed"
	CoordinatorComplete store.EventType = "coordinator-complete"
	CoordinatorFailed   store.EventType = "coordinator-failed"
)

// StartPipelinePayload accompanies StartPipeline.
type StartPipelinePayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// StageStartedPayload accompanies StageStarted.
type StageStartedPayload struct {
	StageID string `json:"stageId"`
	Type    string `json:"type"`
}

// StageRetryPayload accompanies StageRetry.
type StageRetryPayload struct {
	StageID string        `json:"stageId"`
	Attempt int           `json:"attempt"`
	Error   string        `json:"error"`
	Delay   time.Duration `json:"delay"`
}

// PipelineStartedPayload accompanies PipelineStarted.
type PipelineStartedPayload struct {
	PipelineID string `json:"pipelineId"`
	StageCount int    `json:"stageCount"`
}

// PipelineProgressPayload accompanies PipelineProgress. Progress is a
// rounded percentage.
type PipelineProgressPayload struct {
	Progress  int `json:"progress"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// PipelineCompletePayload accompanies PipelineComplete.
type PipelineCompletePayload struct {
	PipelineID string        `json:"pipelineId"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
}

// PipelineFailedPayload accompanies PipelineFailed.
type PipelineFailedPayload struct {
	PipelineID string        `json:"pipelineId"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
}

// CoordinatorCompletePayload accompanies CoordinatorComplete.
type CoordinatorCompletePayload struct {
	PipelineID string        `json:"pipelineId"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
}

// CoordinatorFailedPayload accompanies CoordinatorFailed.
type CoordinatorFailedPayload struct {
	Error string `json:"error"`
}
