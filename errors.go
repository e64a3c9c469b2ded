package curtains

import (
	"errors"

	"github.com/chancegraff/curtains-sub000/internal/orchestrator"
	"github.com/chancegraff/curtains-sub000/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrEmptySource   = errors.New("presentation source cannot be empty")
	ErrNoOutput      = errors.New("output path cannot be empty")
	ErrInvalidOption = errors.New("invalid converter option")
	ErrConversion    = errors.New("conversion failed")
	ErrClosed        = errors.New("converter is closed")
)

// Stage errors, re-exported for errors.Is checks on Convert results.
var (
	ErrEmptyDocument  = pipeline.ErrEmptyDocument
	ErrMetadata       = pipeline.ErrMetadata
	ErrHTMLConversion = pipeline.ErrHTMLConversion
	ErrSlideCSS       = pipeline.ErrSlideCSS
	ErrCustomCSS      = pipeline.ErrCustomCSS
	ErrWrite          = pipeline.ErrWrite

	ErrBrowserConnect = pipeline.ErrBrowserConnect
	ErrPageCreate     = pipeline.ErrPageCreate
	ErrPageLoad       = pipeline.ErrPageLoad
	ErrPDFGeneration  = pipeline.ErrPDFGeneration

	ErrStageTimeout    = orchestrator.ErrStageTimeout
	ErrPipelineTimeout = orchestrator.ErrPipelineTimeout
)
