package pipeline

import "errors"

// Sentinel errors for stage failures.
var (
	ErrEmptyDocument  = errors.New("document has no slides")
	ErrMetadata       = errors.New("invalid deck metadata")
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrTemplate       = errors.New("presentation template failed")
	ErrSlideCSS       = errors.New("invalid slide CSS")
	ErrCustomCSS      = errors.New("reading custom CSS failed")
	ErrEmptyPath      = errors.New("output path is empty")
	ErrWrite          = errors.New("writing output failed")
	ErrUnexpectedType = errors.New("unexpected stage input")
)

// PDF export errors.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)
