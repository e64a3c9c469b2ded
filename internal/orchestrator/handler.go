package orchestrator

import (
	"context"

	"github.com/chancegraff/curtains-sub000/internal/slides"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

// StageInput is the closed set of handler inputs.
type StageInput interface {
	StageType() StageType
}

// StageOutput is the closed set of handler outputs.
type StageOutput interface {
	StageType() StageType
}

// ParseInput is the raw document source.
type ParseInput struct {
	Content string `json:"content"`
}

// TransformInput is a parsed document.
type TransformInput struct {
	Document *slides.Document `json:"document,omitempty"`
}

// RenderInput is a transformed document.
type RenderInput struct {
	Transformed *slides.Transformed `json:"transformed,omitempty"`
}

// WriteInput is a rendered page and its destination.
type WriteInput struct {
	Path     string           `json:"path"`
	Rendered *slides.Rendered `json:"rendered,omitempty"`
}

// ParseOutput carries the parsed document.
type ParseOutput struct {
	Document *slides.Document `json:"document"`
}

// TransformOutput carries the transformed document.
type TransformOutput struct {
	Transformed *slides.Transformed `json:"transformed"`
}

// RenderOutput carries the rendered page.
type RenderOutput struct {
	Rendered *slides.Rendered `json:"rendered"`
}

// WriteOutput reports what was written.
type WriteOutput struct {
	slides.WriteResult
}

func (ParseInput) StageType() StageType      { return StageParse }
func (TransformInput) StageType() StageType  { return StageTransform }
func (RenderInput) StageType() StageType     { return StageRender }
func (WriteInput) StageType() StageType      { return StageWrite }
func (ParseOutput) StageType() StageType     { return StageParse }
func (TransformOutput) StageType() StageType { return StageTransform }
func (RenderOutput) StageType() StageType    { return StageRender }
func (WriteOutput) StageType() StageType     { return StageWrite }

// Handler performs one stage. Handlers must honor ctx; a handler that
// outlives its deadline is abandoned and its stage fails.
type Handler interface {
	Handle(ctx context.Context, in StageInput, st *store.Store) (StageOutput, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in StageInput, st *store.Store) (StageOutput, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, in StageInput, st *store.Store) (StageOutput, error) {
	return f(ctx, in, st)
}

// OutputValidator is implemented by handlers that check their own output.
type OutputValidator interface {
	ValidateOutput(out StageOutput) error
}

// Handlers maps stage types to handlers.
type Handlers map[StageType]Handler

// HandlerFactory builds the handler table for one run.
type HandlerFactory func(cfg store.RuntimeConfig) (Handlers, error)
