// Package pipeline implements the stage handlers that turn a slide deck
// source into a presentation file.
//
// Each stage is usable on its own and as an orchestrator.Handler:
//   - Parse splits the source on === lines into metadata and slides,
//     extracting :::containers and per-slide <style> blocks
//   - Transform converts each slide's markdown to HTML via Goldmark with
//     syntax highlighting, optionally sanitized with bluemonday
//   - Render scopes slide CSS, loads the theme and executes the
//     presentation template
//   - Write stores the page atomically as .html, gzip-compressed .html.gz,
//     or .pdf rendered through headless Chrome (go-rod)
//
// Handlers memoize parse, transform and render results in the store cache
// under content-hash keys (parse:<hash>, transform:<hash>, render:<hash>).
package pipeline
