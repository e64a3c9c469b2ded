package pipeline

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/slides"
)

// DefaultTitle is used when neither metadata nor any slide provides one.
const DefaultTitle = "Presentation"

// Renderer assembles transformed slides into one themed HTML page.
type Renderer struct {
	loader    assets.AssetLoader
	theme     string
	customCSS string
	tmpl      *template.Template
}

// NewRenderer parses the presentation template from loader. theme is used
// when the document metadata names none; customCSS is appended after every
// other stylesheet.
func NewRenderer(loader assets.AssetLoader, theme, customCSS string) (*Renderer, error) {
	src, err := loader.LoadTemplate(assets.PresentationTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	tmpl, err := template.New(assets.PresentationTemplate).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &Renderer{
		loader:    loader,
		theme:     theme,
		customCSS: customCSS,
		tmpl:      tmpl,
	}, nil
}

type pageData struct {
	Title        string
	Author       string
	Date         string
	Theme        string
	ThemeCSS     template.CSS
	HighlightCSS template.CSS
	SlideCSS     template.CSS
	CustomCSS    template.CSS
	Slides       []slideData
	SlideCount   int
}

type slideData struct {
	ID     string
	Index  int
	Number int
	HTML   template.HTML
}

// SlideID is the element id of the nth slide, counting from 1.
func SlideID(n int) string {
	return fmt.Sprintf("slide-%d", n)
}

// Render builds the page. The metadata theme wins over the renderer's.
func (r *Renderer) Render(ctx context.Context, t *slides.Transformed) (*slides.Rendered, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transformed document", ErrUnexpectedType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	theme := cmp.Or(t.Meta.Theme, r.theme, assets.DefaultTheme)
	themeCSS, err := r.loader.LoadStyle(theme)
	if err != nil {
		return nil, fmt.Errorf("loading theme %q: %w", theme, err)
	}
	highlightCSS, err := HighlightCSS(theme)
	if err != nil {
		return nil, err
	}

	data := pageData{
		Title:        cmp.Or(t.Meta.Title, titleFromSlides(t.Slides), DefaultTitle),
		Author:       t.Meta.Author,
		Date:         t.Meta.Date,
		Theme:        theme,
		ThemeCSS:     template.CSS(sanitizeCSS(themeCSS)),     // #nosec G203 -- escaped by sanitizeCSS
		HighlightCSS: template.CSS(sanitizeCSS(highlightCSS)), // #nosec G203 -- generated by chroma
		CustomCSS:    template.CSS(sanitizeCSS(r.customCSS)),  // #nosec G203 -- escaped by sanitizeCSS
		Slides:       make([]slideData, 0, len(t.Slides)),
		SlideCount:   len(t.Slides),
	}

	var slideCSS strings.Builder
	for i, s := range t.Slides {
		id := SlideID(i + 1)
		scoped, err := ScopeCSS(s.CSS, "#"+id)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		if scoped != "" {
			slideCSS.WriteString(scoped)
			slideCSS.WriteByte('\n')
		}
		data.Slides = append(data.Slides, slideData{
			ID:     id,
			Index:  s.Index,
			Number: i + 1,
			HTML:   template.HTML(s.HTML), // #nosec G203 -- produced by the transform stage
		})
	}
	data.SlideCSS = template.CSS(sanitizeCSS(slideCSS.String())) // #nosec G203 -- escaped by sanitizeCSS

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	count, err := countSlides(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &slides.Rendered{
		Title:      data.Title,
		HTML:       buf.String(),
		SlideCount: count,
	}, nil
}

// titleFromSlides returns the text of the first <h1> in slide order.
func titleFromSlides(ss []slides.SlideHTML) string {
	for _, s := range ss {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
		if err != nil {
			continue
		}
		if h1 := doc.Find("h1").First(); h1.Length() > 0 {
			if title := strings.TrimSpace(h1.Text()); title != "" {
				return title
			}
		}
	}
	return ""
}

// countSlides counts the slide sections of a rendered page.
func countSlides(page []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, fmt.Errorf("%w: reading rendered page: %v", ErrTemplate, err)
	}
	return doc.Find("section.slide").Length(), nil
}
