// Package slides defines the document model passed between pipeline stages.
//
// The model has three shapes, one per stage boundary:
//
//	Document     parse output: metadata plus slides made of markdown and container nodes
//	Transformed  transform output: one HTML fragment and raw CSS per slide
//	Rendered     render output: a complete, themed HTML page
//
// Values are treated as immutable once a stage returns them. Stages that need
// to change a value build a new one.
package slides

// Metadata holds presentation-level settings from the document header.
type Metadata struct {
	Title  string `yaml:"title" json:"title"`
	Author string `yaml:"author" json:"author"`
	Date   string `yaml:"date" json:"date"`
	Theme  string `yaml:"theme" json:"theme"`
}

// NodeKind identifies the concrete type of a Node.
type NodeKind string

// Node kinds.
const (
	KindMarkdown  NodeKind = "markdown"
	KindContainer NodeKind = "container"
)

// Node is one element of a slide body.
type Node interface {
	Kind() NodeKind
}

// Markdown is a run of markdown source inside a slide or container.
type Markdown struct {
	Source string `json:"source"`
}

// Kind implements Node.
func (Markdown) Kind() NodeKind { return KindMarkdown }

// Container groups child nodes under a set of CSS classes.
type Container struct {
	Classes  []string `json:"classes"`
	Children []Node   `json:"children"`
}

// Kind implements Node.
func (Container) Kind() NodeKind { return KindContainer }

// Slide is one parsed slide.
type Slide struct {
	Index int    `json:"index"`
	Nodes []Node `json:"nodes"`
	CSS   string `json:"css,omitempty"` // slide-local styles, unscoped
}

// Document is the parse stage output.
type Document struct {
	Meta   Metadata `json:"meta"`
	Slides []Slide  `json:"slides"`
}

// SlideHTML is one transformed slide.
type SlideHTML struct {
	Index int    `json:"index"`
	HTML  string `json:"html"`
	CSS   string `json:"css,omitempty"`
}

// Transformed is the transform stage output.
type Transformed struct {
	Meta   Metadata    `json:"meta"`
	Slides []SlideHTML `json:"slides"`
}

// Rendered is the render stage output.
type Rendered struct {
	Title      string `json:"title"`
	HTML       string `json:"html"`
	SlideCount int    `json:"slideCount"`
}

// WriteResult is the write stage output.
type WriteResult struct {
	Path    string `json:"path"`
	Written bool   `json:"written"`
	Bytes   int    `json:"bytes"`
}
