package pipeline

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/chancegraff/curtains-sub000/internal/slides"
)

// Transformer converts parsed slides into HTML fragments.
type Transformer struct {
	converter    HTMLConverter
	preprocessor MarkdownPreprocessor
	policy       *bluemonday.Policy // nil: output is not sanitized
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithConverter replaces the Goldmark converter.
func WithConverter(c HTMLConverter) TransformerOption {
	return func(t *Transformer) { t.converter = c }
}

// WithSanitizer sanitizes each slide with p. A nil policy disables
// sanitizing.
func WithSanitizer(p *bluemonday.Policy) TransformerOption {
	return func(t *Transformer) { t.policy = p }
}

// NewTransformer returns a Transformer using Goldmark and no sanitizer.
func NewTransformer(opts ...TransformerOption) *Transformer {
	t := &Transformer{
		converter:    NewGoldmarkConverter(),
		preprocessor: &SlidePreprocessor{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SlidePolicy is the sanitizer for slide HTML: bluemonday's UGC policy plus
// class attributes, which containers and syntax highlighting rely on.
func SlidePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	return p
}

// Transform converts every slide of doc. Metadata is carried over.
func (t *Transformer) Transform(ctx context.Context, doc *slides.Document) (*slides.Transformed, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrUnexpectedType)
	}
	out := &slides.Transformed{
		Meta:   doc.Meta,
		Slides: make([]slides.SlideHTML, 0, len(doc.Slides)),
	}
	for _, s := range doc.Slides {
		var b strings.Builder
		if err := t.renderNodes(ctx, &b, s.Nodes); err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.Index+1, err)
		}
		fragment := ConvertMarkPlaceholders(b.String())
		if t.policy != nil {
			fragment = t.policy.Sanitize(fragment)
		}
		out.Slides = append(out.Slides, slides.SlideHTML{
			Index: s.Index,
			HTML:  fragment,
			CSS:   s.CSS,
		})
	}
	return out, nil
}

func (t *Transformer) renderNodes(ctx context.Context, b *strings.Builder, nodes []slides.Node) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case slides.Markdown:
			fragment, err := t.converter.Convert(ctx, t.preprocessor.PreprocessMarkdown(n.Source))
			if err != nil {
				return err
			}
			b.WriteString(fragment)
		case slides.Container:
			b.WriteString(`<div class="`)
			b.WriteString(html.EscapeString(strings.Join(n.Classes, " ")))
			b.WriteString("\">\n")
			if err := t.renderNodes(ctx, b, n.Children); err != nil {
				return err
			}
			b.WriteString("</div>\n")
		default:
			return fmt.Errorf("%w: node kind %q", ErrHTMLConversion, n.Kind())
		}
	}
	return nil
}
