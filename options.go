package curtains

import (
	"time"

	"go.uber.org/zap"

	"github.com/chancegraff/curtains-sub000/internal/metrics"
	"github.com/chancegraff/curtains-sub000/internal/pipeline"
)

// Defaults applied by NewConverter.
const (
	DefaultTheme      = "default"
	DefaultTimeout    = 30 * time.Second
	DefaultBackoff    = 100 * time.Millisecond
	DefaultRetryLimit = 1
)

// PDFExporter prints a rendered page to PDF. See pipeline.RodExporter.
type PDFExporter = pipeline.PDFExporter

type converterConfig struct {
	theme      string
	css        string
	assetPath  string
	parallel   bool
	retryLimit int
	timeout    time.Duration
	backoff    time.Duration
	sanitize   bool
	debug      bool
	fallback   bool
	cacheTTL   time.Duration
	noCache    bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithTheme sets the theme used when neither the input nor the document
// header names one.
func WithTheme(name string) Option {
	return func(c *Converter) { c.cfg.theme = name }
}

// WithCSS appends the stylesheet at path after every other style.
func WithCSS(path string) Option {
	return func(c *Converter) { c.cfg.css = path }
}

// WithAssetPath overrides embedded themes and templates with files under
// dir (styles/<name>.css, templates/<name>.html).
func WithAssetPath(dir string) Option {
	return func(c *Converter) { c.cfg.assetPath = dir }
}

// WithParallel runs independent stages concurrently.
func WithParallel(parallel bool) Option {
	return func(c *Converter) { c.cfg.parallel = parallel }
}

// WithRetryLimit sets how many times a failed stage is retried; 0 disables
// retries.
func WithRetryLimit(n int) Option {
	return func(c *Converter) { c.cfg.retryLimit = n }
}

// WithTimeout bounds one whole conversion, PDF export included.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) { c.cfg.timeout = d }
}

// WithBackoff sets the base retry delay; retry n waits 2^n times it.
func WithBackoff(d time.Duration) Option {
	return func(c *Converter) { c.cfg.backoff = d }
}

// WithSanitize toggles HTML sanitizing of slide content. On by default.
func WithSanitize(on bool) Option {
	return func(c *Converter) { c.cfg.sanitize = on }
}

// WithDebug logs every store dispatch.
func WithDebug(on bool) Option {
	return func(c *Converter) { c.cfg.debug = on }
}

// WithFallback toggles the HTML fallback for failed writes. On by default.
func WithFallback(on bool) Option {
	return func(c *Converter) { c.cfg.fallback = on }
}

// WithCacheTTL sets how long stage results stay cached. ttl < 0 never
// expires.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Converter) { c.cfg.cacheTTL = ttl }
}

// WithoutCache disables stage result caching.
func WithoutCache() Option {
	return func(c *Converter) { c.cfg.noCache = true }
}

// WithLogger sets the logger for the converter and everything it runs.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records dispatch and stage metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithPDFExporter replaces the headless Chrome exporter. The converter does
// not close an injected exporter.
func WithPDFExporter(e PDFExporter) Option {
	return func(c *Converter) { c.pdf = e }
}
