package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chancegraff/curtains-sub000/internal/slides"
)

func md(src string) slides.Markdown { return slides.Markdown{Source: src} }

func box(classes []string, children ...slides.Node) slides.Container {
	return slides.Container{Classes: classes, Children: children}
}

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   *slides.Document
	}{
		{
			name:   "empty header",
			source: "===\n# Hi",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("# Hi")}},
			}},
		},
		{
			name:   "no delimiter is one slide",
			source: "# Solo\n\ntext",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("# Solo\n\ntext")}},
			}},
		},
		{
			name:   "metadata header",
			source: "title: Deck\nauthor: Ann\ntheme: dark\n===\n# One\n===\n# Two",
			want: &slides.Document{
				Meta: slides.Metadata{Title: "Deck", Author: "Ann", Theme: "dark"},
				Slides: []slides.Slide{
					{Index: 0, Nodes: []slides.Node{md("# One")}},
					{Index: 1, Nodes: []slides.Node{md("# Two")}},
				},
			},
		},
		{
			name:   "commented header is blank",
			source: "# just a comment\n===\nbody",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("body")}},
			}},
		},
		{
			name:   "blank slides dropped",
			source: "===\n# A\n===\n\n   \n===\n# B\n===\n",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("# A")}},
				{Index: 1, Nodes: []slides.Node{md("# B")}},
			}},
		},
		{
			name:   "delimiter with surrounding spaces",
			source: "===\none\n  ===  \ntwo",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("one")}},
				{Index: 1, Nodes: []slides.Node{md("two")}},
			}},
		},
		{
			name:   "crlf line endings",
			source: "title: T\r\n===\r\n# A\r\n",
			want: &slides.Document{
				Meta:   slides.Metadata{Title: "T"},
				Slides: []slides.Slide{{Index: 0, Nodes: []slides.Node{md("# A")}}},
			},
		},
		{
			name:   "nested containers",
			source: "===\n:::columns two\nleft\n:::note\ninner\n:::\n:::\nafter",
			want: &slides.Document{Slides: []slides.Slide{{Index: 0, Nodes: []slides.Node{
				box([]string{"columns", "two"}, md("left"), box([]string{"note"}, md("inner"))),
				md("after"),
			}}}},
		},
		{
			name:   "unclosed container closes at slide end",
			source: "===\n:::box\ncontent\n===\nnext",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{box([]string{"box"}, md("content"))}},
				{Index: 1, Nodes: []slides.Node{md("next")}},
			}},
		},
		{
			name:   "stray close marker is text",
			source: "===\ntext\n:::",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("text\n:::")}},
			}},
		},
		{
			name:   "invalid class names dropped",
			source: "===\n::: .note bad! two\nx\n:::",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{box([]string{"note", "two"}, md("x"))}},
			}},
		},
		{
			name:   "style block",
			source: "===\n<style>\nh1 { color: red; }\n</style>\n# Styled",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, CSS: "h1 { color: red; }", Nodes: []slides.Node{md("# Styled")}},
			}},
		},
		{
			name:   "single line style",
			source: "===\n<style>p { margin: 0; }</style>\ntext",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, CSS: "p { margin: 0; }", Nodes: []slides.Node{md("text")}},
			}},
		},
		{
			name:   "style only slide",
			source: "===\n<style>body { background: red; }</style>",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, CSS: "body { background: red; }"},
			}},
		},
		{
			name:   "fenced code is literal",
			source: "===\n```\n===\n:::x\n<style>\n```\n# after",
			want: &slides.Document{Slides: []slides.Slide{
				{Index: 0, Nodes: []slides.Node{md("```\n===\n:::x\n<style>\n```\n# after")}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewParser().Parse(context.Background(), tt.source)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{"empty source", "", ErrEmptyDocument},
		{"only delimiters", "===\n===\n", ErrEmptyDocument},
		{"header only", "title: Deck\n===\n", ErrEmptyDocument},
		{"malformed header", "title: [unclosed\n===\n# x", ErrMetadata},
		{"header is not a mapping", "- a\n- b\n===\n# x", ErrMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewParser().Parse(context.Background(), tt.source)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewParser().Parse(ctx, "# x"); !errors.Is(err, context.Canceled) {
			t.Errorf("Parse() error = %v, want context.Canceled", err)
		}
	})
}

func TestContainerClasses(t *testing.T) {
	t.Parallel()

	got := containerClasses(" columns  .two 3bad -ok")
	if diff := cmp.Diff([]string{"columns", "two", "-ok"}, got); diff != "" {
		t.Errorf("containerClasses() mismatch (-want +got):\n%s", diff)
	}
}
