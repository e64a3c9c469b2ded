package orchestrator

import (
	"errors"
	"slices"
	"time"
)

// StageType names the kind of work a stage performs.
type StageType string

// Stage types.
const (
	StageParse     StageType = "parse"
	StageTransform StageType = "transform"
	StageRender    StageType = "render"
	StageWrite     StageType = "write"
)

// StageTypes returns the stage types in pipeline order.
func StageTypes() []StageType {
	return []StageType{StageParse, StageTransform, StageRender, StageWrite}
}

// StageStatus is the lifecycle state of a stage.
type StageStatus string

// Stage statuses. Complete, failed and skipped are terminal.
const (
	StatusPending  StageStatus = "pending"
	StatusRunning  StageStatus = "running"
	StatusComplete StageStatus = "complete"
	StatusFailed   StageStatus = "failed"
	StatusSkipped  StageStatus = "skipped"
)

// Terminal reports whether s is final.
func (s StageStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusSkipped
}

// Operation is one queued unit of work. The coordinator reads a []Operation
// from the store's queue key.
type Operation struct {
	Type  StageType  `json:"type"`
	Input StageInput `json:"input,omitempty"`
}

// Stage is one unit of pipeline work.
type Stage struct {
	ID           string      `json:"id"`
	Type         StageType   `json:"type"`
	Input        StageInput  `json:"input,omitempty"`
	Output       StageOutput `json:"output,omitempty"`
	Status       StageStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
	StartTime    time.Time   `json:"startTime,omitzero"`
	EndTime      time.Time   `json:"endTime,omitzero"`
	Dependencies []string    `json:"dependencies"`
	Attempts     int         `json:"attempts"`
	FallbackOf   string      `json:"fallbackOf,omitempty"` // id of the failed stage this one replaces
}

// PipelineConfig is a stage graph plus its execution policy.
type PipelineConfig struct {
	ID         string        `json:"id"`
	Stages     []Stage       `json:"stages"`
	Parallel   bool          `json:"parallel"`
	RetryLimit int           `json:"retryLimit"`
	Timeout    time.Duration `json:"timeout"`
	Backoff    time.Duration `json:"backoff"` // unit of the exponential retry delay
}

// Clone returns a deep copy of the stage list and dependency slices.
func (p *PipelineConfig) Clone() *PipelineConfig {
	out := *p
	out.Stages = make([]Stage, len(p.Stages))
	for i, s := range p.Stages {
		s.Dependencies = slices.Clone(s.Dependencies)
		out.Stages[i] = s
	}
	return &out
}

// Stage returns the stage with id.
func (p *PipelineConfig) Stage(id string) (Stage, bool) {
	i := p.index(id)
	if i < 0 {
		return Stage{}, false
	}
	return p.Stages[i], true
}

func (p *PipelineConfig) index(id string) int {
	return slices.IndexFunc(p.Stages, func(s Stage) bool { return s.ID == id })
}

// StageResult is the outcome of one stage.
type StageResult struct {
	StageID  string        `json:"stageId"`
	Type     StageType     `json:"type"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
	Output   StageOutput   `json:"output,omitempty"`
	Err      error         `json:"-"`
}

// PipelineResult is the outcome of one run. Stages holds results in
// completion order; skipped stages have no result.
type PipelineResult struct {
	PipelineID string        `json:"pipelineId"`
	Success    bool          `json:"success"`
	Stages     []StageResult `json:"stages"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// FirstError returns the first failing stage's message, or the pipeline
// error when no stage failed.
func (r *PipelineResult) FirstError() string {
	for _, s := range r.Stages {
		if !s.Success && s.Error != "" {
			return s.Error
		}
	}
	return r.Error
}

// Cause returns the error behind FirstError with its chain intact, for
// errors.Is checks by callers. It is nil for a successful run.
func (r *PipelineResult) Cause() error {
	for _, s := range r.Stages {
		if !s.Success && s.Err != nil {
			return s.Err
		}
	}
	if r.Err != nil {
		return r.Err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}
