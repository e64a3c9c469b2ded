package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/slides"
)

func newTestRenderer(t *testing.T, theme, customCSS string) *Renderer {
	t.Helper()
	r, err := NewRenderer(assets.NewEmbeddedLoader(), theme, customCSS)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func twoSlides(meta slides.Metadata) *slides.Transformed {
	return &slides.Transformed{
		Meta: meta,
		Slides: []slides.SlideHTML{
			{Index: 0, HTML: `<h1 id="hi">Hi</h1>`, CSS: "h1 { color: red; }"},
			{Index: 1, HTML: "<p>two</p>"},
		},
	}
}

// ---------------------------------------------------------------------------
// Render
// ---------------------------------------------------------------------------

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	got, err := newTestRenderer(t, "", "").Render(context.Background(), twoSlides(slides.Metadata{}))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if got.Title != "Hi" {
		t.Errorf("Title = %q, want title from the first h1", got.Title)
	}
	if got.SlideCount != 2 {
		t.Errorf("SlideCount = %d, want 2", got.SlideCount)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Hi</title>",
		`class="curtains theme-default"`,
		`id="slide-1"`,
		`id="slide-2"`,
		"#slide-1 h1 {",
		".chroma",
		"<p>two</p>",
		"2 / 2",
	} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderer_Metadata(t *testing.T) {
	t.Parallel()

	meta := slides.Metadata{Title: "Quarterly", Author: "Ann & Bo", Theme: "dark"}
	got, err := newTestRenderer(t, "minimal", "").Render(context.Background(), twoSlides(meta))
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Quarterly" {
		t.Errorf("Title = %q, want metadata title", got.Title)
	}
	for _, want := range []string{"<title>Quarterly</title>", "theme-dark", `content="Ann &amp; Bo"`} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderer_DefaultTitle(t *testing.T) {
	t.Parallel()

	in := &slides.Transformed{Slides: []slides.SlideHTML{{HTML: "<p>no heading</p>"}}}
	got, err := newTestRenderer(t, "", "").Render(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Title, DefaultTitle)
	}
}

func TestRenderer_CustomCSSCannotCloseStyle(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, "", ".brand { color: teal; }</style><script>alert(1)</script>")
	got, err := r.Render(context.Background(), twoSlides(slides.Metadata{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.HTML, ".brand { color: teal; }") {
		t.Error("custom CSS missing")
	}
	if strings.Contains(got.HTML, "</style><script>") {
		t.Error("custom CSS escaped its style block")
	}
}

func TestRenderer_Errors(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, "", "")

	t.Run("unknown theme", func(t *testing.T) {
		t.Parallel()

		_, err := r.Render(context.Background(), twoSlides(slides.Metadata{Theme: "neon"}))
		if !errors.Is(err, assets.ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})

	t.Run("bad slide CSS", func(t *testing.T) {
		t.Parallel()

		in := &slides.Transformed{Slides: []slides.SlideHTML{{HTML: "<p>x</p>", CSS: "p { color: red; } }"}}}
		if _, err := r.Render(context.Background(), in); !errors.Is(err, ErrSlideCSS) {
			t.Errorf("error = %v, want ErrSlideCSS", err)
		}
	})

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()

		if _, err := r.Render(context.Background(), nil); !errors.Is(err, ErrUnexpectedType) {
			t.Errorf("error = %v, want ErrUnexpectedType", err)
		}
	})
}

func TestSlideID(t *testing.T) {
	t.Parallel()

	if got := SlideID(3); got != "slide-3" {
		t.Errorf("SlideID(3) = %q", got)
	}
}
