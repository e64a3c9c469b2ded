package curtains

import (
	"fmt"
	"strings"
	"time"

	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/orchestrator"
)

// Input is one conversion request.
type Input struct {
	Source string // document text
	Output string // destination; .gz and .pdf select the format, anything else is HTML
	Theme  string // overrides the converter theme; a theme in the header still wins
}

// Validate checks that required fields are present and valid.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Source) == "" {
		return ErrEmptySource
	}
	if in.Output == "" {
		return ErrNoOutput
	}
	if in.Theme != "" {
		if err := assets.ValidateAssetName(in.Theme); err != nil {
			return fmt.Errorf("%w: theme: %w", ErrInvalidOption, err)
		}
	}
	return nil
}

// Result describes a finished conversion.
type Result struct {
	PipelineID string
	Path       string // file actually written; differs from Input.Output after a fallback
	Bytes      int
	Title      string
	SlideCount int
	Duration   time.Duration
	Stages     []orchestrator.StageResult

	// Recovered is the stage failure a fallback recovered from, nil when
	// every stage succeeded on its own.
	Recovered error
}

// FellBack reports whether the output was produced by a fallback stage.
func (r *Result) FellBack() bool {
	return r.Recovered != nil
}
