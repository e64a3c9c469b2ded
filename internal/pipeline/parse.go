package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chancegraff/curtains-sub000/internal/slides"
	"github.com/chancegraff/curtains-sub000/internal/yamlutil"
)

// Delimiter separates slides. It must stand alone on its line; surrounding
// whitespace is ignored.
const Delimiter = "==="

// containerMarker opens a container when followed by class names and closes
// the innermost open container when alone.
const containerMarker = ":::"

var (
	crlfOrCR     = regexp.MustCompile(`\r\n?`)
	classPattern = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)
)

// Parser splits deck source into metadata and slides.
//
// With at least one delimiter the first section is the YAML metadata header
// (title, author, date, theme); a blank header means no metadata. Without a
// delimiter the whole source is a single slide. Blank sections are dropped.
// Delimiters, container markers and style tags inside fenced code blocks
// are plain markdown.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse builds a document from source.
func (p *Parser) Parse(ctx context.Context, source string) (*slides.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sections := splitSections(normalizeLineEndings(source))
	doc := &slides.Document{Slides: []slides.Slide{}}
	if len(sections) > 1 {
		meta, err := parseMetadata(sections[0])
		if err != nil {
			return nil, err
		}
		doc.Meta = meta
		sections = sections[1:]
	}

	for _, lines := range sections {
		if isBlank(lines) {
			continue
		}
		doc.Slides = append(doc.Slides, parseSlide(len(doc.Slides), lines))
	}
	if len(doc.Slides) == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

func splitSections(source string) [][]string {
	var (
		sections [][]string
		current  []string
		fence    fenceTracker
	)
	for line := range strings.SplitSeq(source, "\n") {
		if !fence.update(line) && strings.TrimSpace(line) == Delimiter {
			sections = append(sections, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	return append(sections, current)
}

func parseMetadata(lines []string) (slides.Metadata, error) {
	var meta slides.Metadata
	data := []byte(strings.Join(lines, "\n"))
	if yamlutil.IsBlank(data) {
		return meta, nil
	}
	if err := yamlutil.Unmarshal(data, &meta); err != nil {
		return slides.Metadata{}, fmt.Errorf("%w:\n%s", ErrMetadata, yamlutil.Describe(err))
	}
	return meta, nil
}

// frame is an open container while its slide is parsed. The root frame has
// no classes.
type frame struct {
	classes []string
	nodes   []slides.Node
}

type slideParser struct {
	stack   []*frame
	md      []string
	css     []string
	inStyle bool
	fence   fenceTracker
}

func parseSlide(index int, lines []string) slides.Slide {
	sp := &slideParser{stack: []*frame{{}}}
	for _, line := range lines {
		sp.line(line)
	}
	sp.flush()
	for len(sp.stack) > 1 {
		sp.pop()
	}
	return slides.Slide{
		Index: index,
		Nodes: sp.stack[0].nodes,
		CSS:   strings.TrimSpace(strings.Join(sp.css, "\n")),
	}
}

func (sp *slideParser) line(line string) {
	if sp.inStyle {
		if end := strings.Index(line, "</style>"); end >= 0 {
			sp.css = append(sp.css, line[:end])
			sp.inStyle = false
			if rest := line[end+len("</style>"):]; strings.TrimSpace(rest) != "" {
				sp.md = append(sp.md, rest)
			}
			return
		}
		sp.css = append(sp.css, line)
		return
	}
	if sp.fence.update(line) {
		sp.md = append(sp.md, line)
		return
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case isStyleOpen(trimmed):
		sp.openStyle(trimmed)
	case trimmed == containerMarker && len(sp.stack) > 1:
		sp.flush()
		sp.pop()
	case strings.HasPrefix(trimmed, containerMarker) && trimmed != containerMarker:
		sp.flush()
		sp.stack = append(sp.stack, &frame{classes: containerClasses(trimmed[len(containerMarker):])})
	default:
		sp.md = append(sp.md, line)
	}
}

func isStyleOpen(trimmed string) bool {
	rest, ok := strings.CutPrefix(trimmed, "<style")
	return ok && (strings.HasPrefix(rest, ">") || strings.HasPrefix(rest, " "))
}

// openStyle starts a style block; the tag may close on the same line.
func (sp *slideParser) openStyle(trimmed string) {
	gt := strings.IndexByte(trimmed, '>')
	if gt < 0 {
		sp.md = append(sp.md, trimmed)
		return
	}
	body := trimmed[gt+1:]
	if end := strings.Index(body, "</style>"); end >= 0 {
		sp.css = append(sp.css, body[:end])
		return
	}
	sp.css = append(sp.css, body)
	sp.inStyle = true
}

// flush moves buffered markdown into the innermost frame.
func (sp *slideParser) flush() {
	src := strings.Trim(strings.Join(sp.md, "\n"), "\n")
	sp.md = sp.md[:0]
	if strings.TrimSpace(src) == "" {
		return
	}
	top := sp.stack[len(sp.stack)-1]
	top.nodes = append(top.nodes, slides.Markdown{Source: src})
}

func (sp *slideParser) pop() {
	top := sp.stack[len(sp.stack)-1]
	sp.stack = sp.stack[:len(sp.stack)-1]
	parent := sp.stack[len(sp.stack)-1]
	parent.nodes = append(parent.nodes, slides.Container{
		Classes:  top.classes,
		Children: top.nodes,
	})
}

// containerClasses keeps the valid class names of a container line. A
// leading dot is accepted and dropped.
func containerClasses(line string) []string {
	classes := []string{}
	for _, f := range strings.Fields(line) {
		f = strings.TrimPrefix(f, ".")
		if classPattern.MatchString(f) {
			classes = append(classes, f)
		}
	}
	return classes
}

func isBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// fenceTracker follows fenced code blocks line by line.
type fenceTracker struct {
	marker string
}

// update reports whether line opens, closes or sits inside a fenced block.
func (f *fenceTracker) update(line string) bool {
	trimmed := strings.TrimSpace(line)
	if f.marker != "" {
		if strings.HasPrefix(trimmed, f.marker) {
			f.marker = ""
		}
		return true
	}
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			f.marker = m
			return true
		}
	}
	return false
}
