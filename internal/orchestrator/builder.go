package orchestrator

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Build defaults.
const (
	DefaultRetryLimit = 1
	DefaultTimeout    = 30 * time.Second
	DefaultBackoff    = 100 * time.Millisecond
)

// NoRetry as a RetryLimit disables retries; zero selects DefaultRetryLimit.
const NoRetry = -1

// BuildOptions sets the execution policy of a built pipeline.
type BuildOptions struct {
	Parallel   bool
	RetryLimit int           // 0 selects DefaultRetryLimit; < 0 disables retries
	Timeout    time.Duration // <= 0 selects DefaultTimeout
	Backoff    time.Duration // <= 0 selects DefaultBackoff
	NewID      func() string // defaults to uuid.NewString
}

// DefaultBuildOptions returns sequential execution with one retry and a 30s
// timeout.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		RetryLimit: DefaultRetryLimit,
		Timeout:    DefaultTimeout,
		Backoff:    DefaultBackoff,
	}
}

func (o BuildOptions) normalize() BuildOptions {
	switch {
	case o.RetryLimit == 0:
		o.RetryLimit = DefaultRetryLimit
	case o.RetryLimit < 0:
		o.RetryLimit = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// CreatePipeline builds one pending stage per operation in queue order. The
// stages form a linear chain: each depends on exactly the previous one.
func CreatePipeline(queue []Operation, opts BuildOptions) (*PipelineConfig, error) {
	if len(queue) == 0 {
		return nil, ErrEmptyQueue
	}
	opts = opts.normalize()

	p := &PipelineConfig{
		ID:         opts.NewID(),
		Stages:     make([]Stage, 0, len(queue)),
		Parallel:   opts.Parallel,
		RetryLimit: opts.RetryLimit,
		Timeout:    opts.Timeout,
		Backoff:    opts.Backoff,
	}

	prev := ""
	for i, op := range queue {
		if op.Type == "" {
			return nil, fmt.Errorf("%w: operation %d has no type", ErrUnknownStageType, i)
		}
		s := Stage{
			ID:           opts.NewID(),
			Type:         op.Type,
			Input:        op.Input,
			Status:       StatusPending,
			Dependencies: []string{},
		}
		if prev != "" {
			s.Dependencies = []string{prev}
		}
		p.Stages = append(p.Stages, s)
		prev = s.ID
	}
	return p, nil
}

// Batches groups stage ids into layers: every stage's dependencies lie in
// earlier layers. Within a layer ids keep declaration order. Cycles and
// unknown dependencies are errors.
func Batches(p *PipelineConfig) ([][]string, error) {
	placed := make(map[string]bool, len(p.Stages))
	for _, s := range p.Stages {
		for _, d := range s.Dependencies {
			if p.index(d) < 0 {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, s.ID, d)
			}
		}
	}

	var batches [][]string
	for len(placed) < len(p.Stages) {
		var batch []string
		for _, s := range p.Stages {
			if placed[s.ID] {
				continue
			}
			if !slices.ContainsFunc(s.Dependencies, func(d string) bool { return !placed[d] }) {
				batch = append(batch, s.ID)
			}
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("%w: dependency cycle among %d stages", ErrStuckPipeline, len(p.Stages)-len(placed))
		}
		for _, id := range batch {
			placed[id] = true
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// OptimizePipeline sets p.Parallel when some batch holds more than one stage
// and returns the batches. The builder never calls it on its own.
func OptimizePipeline(p *PipelineConfig) ([][]string, error) {
	batches, err := Batches(p)
	if err != nil {
		return nil, err
	}
	p.Parallel = slices.ContainsFunc(batches, func(b []string) bool { return len(b) > 1 })
	return batches, nil
}

// Fallback inserts a pending replacement for stageID right after it, with a
// new id, the same type, input and dependencies, and re-points every
// dependent of stageID to the replacement.
func Fallback(p *PipelineConfig, stageID string, newID func() string) (Stage, error) {
	i := p.index(stageID)
	if i < 0 {
		return Stage{}, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}
	if newID == nil {
		newID = uuid.NewString
	}

	orig := p.Stages[i]
	repl := Stage{
		ID:           newID(),
		Type:         orig.Type,
		Input:        orig.Input,
		Status:       StatusPending,
		Dependencies: slices.Clone(orig.Dependencies),
		FallbackOf:   orig.ID,
	}
	for j := range p.Stages {
		for k, d := range p.Stages[j].Dependencies {
			if d == stageID {
				deps := slices.Clone(p.Stages[j].Dependencies)
				deps[k] = repl.ID
				p.Stages[j].Dependencies = deps
			}
		}
	}
	p.Stages = slices.Insert(p.Stages, i+1, repl)
	return repl, nil
}
