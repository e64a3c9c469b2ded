package assets

import (
	"errors"
	"html/template"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Embedded themes
// ---------------------------------------------------------------------------

func TestThemes(t *testing.T) {
	t.Parallel()

	want := []string{"dark", "default", "minimal"}
	if diff := cmp.Diff(want, Themes()); diff != "" {
		t.Errorf("Themes() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadStyle(t *testing.T) {
	t.Parallel()

	for _, name := range Themes() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			css, err := LoadStyle(name)
			if err != nil {
				t.Fatalf("LoadStyle(%q) error = %v", name, err)
			}
			if !strings.Contains(css, ".slide") {
				t.Errorf("theme %q does not style slides", name)
			}
		})
	}

	t.Run("unknown theme", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadStyle("nonexistent"); !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadStyle("../default"); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("error = %v, want ErrInvalidAssetName", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Embedded template
// ---------------------------------------------------------------------------

func TestLoadTemplate_Presentation(t *testing.T) {
	t.Parallel()

	content, err := LoadTemplate(PresentationTemplate)
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}

	tmpl, err := template.New("page").Parse(content)
	if err != nil {
		t.Fatalf("presentation template does not parse: %v", err)
	}

	type slide struct {
		ID     string
		Index  int
		Number int
		HTML   template.HTML
	}
	data := struct {
		Title, Author, Date, Theme       string
		ThemeCSS, HighlightCSS, SlideCSS template.CSS
		CustomCSS                        template.CSS
		Slides                           []slide
		SlideCount                       int
	}{
		Title:      "Deck",
		Theme:      DefaultTheme,
		ThemeCSS:   "body{}",
		Slides:     []slide{{ID: "slide-0", Number: 1, HTML: "<h1>Hi</h1>"}},
		SlideCount: 1,
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	out := sb.String()
	for _, want := range []string{"<title>Deck</title>", `id="slide-0"`, "<h1>Hi</h1>", "1 / 1", "theme-default"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestLoadTemplate_NotFound(t *testing.T) {
	t.Parallel()

	if _, err := LoadTemplate("cover"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}
