package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymerick/douceur/css"
	cssparser "github.com/aymerick/douceur/parser"
)

// Chroma styles paired with the built-in themes.
const (
	lightHighlightStyle = "github"
	darkHighlightStyle  = "monokai"
)

// ScopeCSS prefixes every selector in source with scope so slide-local
// styles cannot leak onto other slides. Selectors for the page root
// (:root, html, body, .slide) become the scope itself. Rules inside @media
// and @supports are scoped; @keyframes and @font-face are kept as is.
func ScopeCSS(source, scope string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	sheet, err := cssparser.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSlideCSS, err)
	}
	scopeRules(sheet.Rules, scope)
	return sheet.String(), nil
}

func scopeRules(rules []*css.Rule, scope string) {
	for _, r := range rules {
		switch {
		case r.Kind == css.QualifiedRule:
			for i, sel := range r.Selectors {
				r.Selectors[i] = scopeSelector(sel, scope)
			}
		case r.Name == "@media" || r.Name == "@supports":
			scopeRules(r.Rules, scope)
		}
	}
}

func scopeSelector(sel, scope string) string {
	switch sel {
	case "", scope:
		return sel
	case ":root", "html", "body", ".slide":
		return scope
	}
	if strings.HasPrefix(sel, scope+" ") {
		return sel
	}
	return scope + " " + sel
}

// HighlightCSS returns the chroma stylesheet for code blocks rendered with
// class names. Themes named "dark" get a dark palette.
func HighlightCSS(theme string) (string, error) {
	name := lightHighlightStyle
	if strings.Contains(theme, "dark") {
		name = darkHighlightStyle
	}
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(name)); err != nil {
		return "", fmt.Errorf("writing highlight CSS: %w", err)
	}
	return buf.String(), nil
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
