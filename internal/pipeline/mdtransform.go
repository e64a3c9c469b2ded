package pipeline

import (
	"regexp"
	"strings"
)

// Highlight placeholders use Unicode Private Use Area characters, which
// pass through Goldmark unchanged. ConvertMarkPlaceholders turns them into
// <mark> tags after HTML generation.
const (
	MarkStartPlaceholder = "\uE000" // U+E000: Private Use Area start
	MarkEndPlaceholder   = "\uE001" // U+E001: Private Use Area end
)

var (
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==([^=\n]+?)==`)
)

// MarkdownPreprocessor rewrites slide markdown before conversion.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(content string) string
}

// SlidePreprocessor applies the dialect's inline extensions. Line endings are
// already normalized by the parser.
type SlidePreprocessor struct{}

// PreprocessMarkdown converts ==text== outside fenced code blocks and
// compresses runs of blank lines.
func (p *SlidePreprocessor) PreprocessMarkdown(content string) string {
	content = convertHighlights(content)
	return compressBlankLines(content)
}

// compressBlankLines limits consecutive blank lines to one.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights replaces ==text== with placeholder markers, leaving
// fenced code untouched.
func convertHighlights(content string) string {
	if !strings.Contains(content, "==") {
		return content
	}
	lines := strings.Split(content, "\n")
	var fence fenceTracker
	for i, line := range lines {
		if fence.update(line) {
			continue
		}
		lines[i] = highlightPattern.ReplaceAllString(line, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
	}
	return strings.Join(lines, "\n")
}

// ConvertMarkPlaceholders converts placeholder markers to <mark> tags.
func ConvertMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>"),
		MarkEndPlaceholder, "</mark>",
	)
}
