// Package curtains compiles slide documents into self-contained HTML
// presentations.
//
// # Quick Start
//
// Create a converter, convert a document, and close when done:
//
//	conv, err := curtains.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, curtains.Input{
//	    Source: "title: Demo\n===\n# Hello\n===\n## World",
//	    Output: "demo.html",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Path, result.SlideCount)
//
// # Document Format
//
// Lines consisting of "===" separate sections. When a document has at least
// one separator, the first section is a YAML header (title, author, date,
// theme) and every later section is a slide. Inside a slide:
//
//	:::columns highlight    opens a container with CSS classes
//	:::                     closes the innermost container
//	<style>...</style>      slide-local CSS, scoped to that slide
//	==text==                highlighted text
//
// Everything else is GitHub-flavored markdown.
//
// # Conversion Pipeline
//
// Each conversion runs four stages through a store-backed orchestrator:
//
//  1. parse: split slides, decode the header, build container trees
//  2. transform: markdown to HTML per slide, optional sanitizing
//  3. render: theme, scoped slide CSS and syntax colors in one page
//  4. write: atomic write as .html, gzip for .gz, headless Chrome for .pdf
//
// Stage results are cached in the converter's store, so converting the same
// source twice reuses earlier work. A failed write falls back to plain HTML
// next to the requested destination; Result.Recovered reports the cause.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := curtains.NewConverter(
//	    curtains.WithTheme("dark"),
//	    curtains.WithTimeout(2 * time.Minute),
//	    curtains.WithRetryLimit(3),
//	)
//
// # Parallel Processing
//
// A Converter runs one conversion at a time. For batch conversion, use
// ConverterPool:
//
//	pool := curtains.NewConverterPool(4)
//	defer pool.Close()
//
//	conv := pool.Acquire()
//	defer pool.Release(conv)
//	result, err := conv.Convert(ctx, input)
//
// # Browser Requirements
//
// PDF output requires Chrome/Chromium. The go-rod library downloads a managed
// Chromium on first use. In containers and CI, set ROD_NO_SANDBOX=1 to
// disable the sandbox; ROD_BROWSER_BIN selects a specific binary.
package curtains
