package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/cache"
	"github.com/chancegraff/curtains-sub000/internal/lock"
	"github.com/chancegraff/curtains-sub000/internal/orchestrator"
	"github.com/chancegraff/curtains-sub000/internal/store"
)

// DefaultCacheTTL bounds how long memoized stage results stay cached.
const DefaultCacheTTL = 10 * time.Minute

// Cache key prefixes.
const (
	CacheParse     = "parse:"
	CacheTransform = "transform:"
	CacheRender    = "render:"
)

type options struct {
	logger   *zap.Logger
	cacheTTL time.Duration
	noCache  bool
	pdf      PDFExporter
}

// Option configures the stage handlers.
type Option func(*options)

// WithLogger sets the handler logger. Defaults to the store's.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCacheTTL sets the lifetime of memoized results. ttl < 0 never expires.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl != 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithoutCache disables memoization.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// WithPDFExporter enables .pdf destinations. The caller owns e and closes it.
func WithPDFExporter(e PDFExporter) Option {
	return func(o *options) { o.pdf = e }
}

func newOptions(opts []Option) options {
	o := options{cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Factory returns a HandlerFactory building the four stage handlers from each
// run's runtime config.
func Factory(opts ...Option) orchestrator.HandlerFactory {
	return func(cfg store.RuntimeConfig) (orchestrator.Handlers, error) {
		return NewHandlers(cfg, opts...)
	}
}

// NewHandlers builds the parse, transform, render and write handlers for cfg.
// The theme, asset directory and custom stylesheet are resolved here, so a
// bad config fails before any stage runs.
func NewHandlers(cfg store.RuntimeConfig, opts ...Option) (orchestrator.Handlers, error) {
	o := newOptions(opts)

	loader, err := assets.NewAssetResolver(cfg.AssetPath)
	if err != nil {
		return nil, err
	}
	var customCSS []byte
	if cfg.CSS != "" {
		if customCSS, err = os.ReadFile(cfg.CSS); err != nil { // #nosec G304 -- user-provided stylesheet
			return nil, fmt.Errorf("%w: %v", ErrCustomCSS, err)
		}
	}
	renderer, err := NewRenderer(loader, cfg.Theme, string(customCSS))
	if err != nil {
		return nil, err
	}

	var topts []TransformerOption
	if cfg.Sanitize {
		topts = append(topts, WithSanitizer(SlidePolicy()))
	}

	s := &stages{
		opts:        o,
		parser:      NewParser(),
		transformer: NewTransformer(topts...),
		renderer:    renderer,
		writer:      NewWriter(o.pdf),
		transformFP: strconv.FormatBool(cfg.Sanitize),
		renderFP: strings.Join([]string{
			cfg.Theme,
			cfg.AssetPath,
			strconv.FormatUint(xxhash.Sum64(customCSS), 16),
		}, "\x00"),
	}
	return orchestrator.Handlers{
		orchestrator.StageParse:     orchestrator.HandlerFunc(s.parse),
		orchestrator.StageTransform: orchestrator.HandlerFunc(s.transform),
		orchestrator.StageRender:    orchestrator.HandlerFunc(s.render),
		orchestrator.StageWrite:     orchestrator.HandlerFunc(s.write),
	}, nil
}

// FallbackHandlers returns the recovery handlers used when a stage fails for
// good. The write fallback saves the page as plain HTML next to the failed
// destination, which rescues a PDF export without a browser.
func FallbackHandlers(opts ...Option) orchestrator.Handlers {
	o := newOptions(opts)
	w := NewWriter(nil)
	return orchestrator.Handlers{
		orchestrator.StageWrite: orchestrator.HandlerFunc(func(ctx context.Context, in orchestrator.StageInput, st *store.Store) (orchestrator.StageOutput, error) {
			win, ok := in.(orchestrator.WriteInput)
			if !ok {
				return nil, fmt.Errorf("%w: %T", ErrUnexpectedType, in)
			}
			path := HTMLPath(win.Path)
			logger(o, st).Warn("writing HTML instead", zap.String("requested", win.Path), zap.String("path", path))
			res, err := w.Write(ctx, lock.New(st), path, win.Rendered)
			if err != nil {
				return nil, err
			}
			return orchestrator.WriteOutput{WriteResult: res}, nil
		}),
	}
}

// HTMLPath replaces the extension of path with .html. A .html.gz path keeps
// its .html stem.
func HTMLPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if filepath.Ext(base) == ".html" {
		return base
	}
	return base + ".html"
}

// stages holds the collaborators of one handler set. Fingerprints mix the
// config that shapes a stage's output into its cache key.
type stages struct {
	opts        options
	parser      *Parser
	transformer *Transformer
	renderer    *Renderer
	writer      *Writer
	transformFP string
	renderFP    string
}

func (s *stages) parse(ctx context.Context, in orchestrator.StageInput, st *store.Store) (orchestrator.StageOutput, error) {
	pin, ok := in.(orchestrator.ParseInput)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedType, in)
	}
	key := CacheParse + strconv.FormatUint(xxhash.Sum64String(pin.Content), 16)
	if v, ok := s.cached(st, key).(store.ParsedContent); ok && v.Document != nil {
		return orchestrator.ParseOutput{Document: v.Document}, nil
	}

	doc, err := s.parser.Parse(ctx, pin.Content)
	if err != nil {
		return nil, err
	}
	s.remember(st, key, store.ParsedContent{Document: doc})
	return orchestrator.ParseOutput{Document: doc}, nil
}

func (s *stages) transform(ctx context.Context, in orchestrator.StageInput, st *store.Store) (orchestrator.StageOutput, error) {
	tin, ok := in.(orchestrator.TransformInput)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedType, in)
	}
	key := CacheTransform + store.Checksum([]any{s.transformFP, tin.Document})
	if v, ok := s.cached(st, key).(store.TransformedContent); ok && v.Transformed != nil {
		return orchestrator.TransformOutput{Transformed: v.Transformed}, nil
	}

	out, err := s.transformer.Transform(ctx, tin.Document)
	if err != nil {
		return nil, err
	}
	s.remember(st, key, store.TransformedContent{Transformed: out})
	return orchestrator.TransformOutput{Transformed: out}, nil
}

func (s *stages) render(ctx context.Context, in orchestrator.StageInput, st *store.Store) (orchestrator.StageOutput, error) {
	rin, ok := in.(orchestrator.RenderInput)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedType, in)
	}
	key := CacheRender + store.Checksum([]any{s.renderFP, rin.Transformed})
	if v, ok := s.cached(st, key).(store.RenderedContent); ok && v.Rendered != nil {
		return orchestrator.RenderOutput{Rendered: v.Rendered}, nil
	}

	out, err := s.renderer.Render(ctx, rin.Transformed)
	if err != nil {
		return nil, err
	}
	s.remember(st, key, store.RenderedContent{Rendered: out})
	return orchestrator.RenderOutput{Rendered: out}, nil
}

func (s *stages) write(ctx context.Context, in orchestrator.StageInput, st *store.Store) (orchestrator.StageOutput, error) {
	win, ok := in.(orchestrator.WriteInput)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedType, in)
	}
	res, err := s.writer.Write(ctx, lock.New(st), win.Path, win.Rendered)
	if err != nil {
		return nil, err
	}
	logger(s.opts, st).Info("presentation written",
		zap.String("path", res.Path),
		zap.Int("bytes", res.Bytes),
		zap.String("format", FormatOf(res.Path)),
	)
	return orchestrator.WriteOutput{WriteResult: res}, nil
}

func (s *stages) cached(st *store.Store, key string) store.CacheValue {
	if s.opts.noCache {
		return nil
	}
	v, ok := cache.New(st).Get(key)
	if !ok {
		return nil
	}
	logger(s.opts, st).Debug("cache hit", zap.String("key", key))
	return v
}

func (s *stages) remember(st *store.Store, key string, v store.CacheValue) {
	if s.opts.noCache {
		return
	}
	ttl := s.opts.cacheTTL
	if ttl < 0 {
		ttl = 0
	}
	if err := cache.New(st).Update(key, v, ttl); err != nil {
		logger(s.opts, st).Warn("caching stage result failed", zap.String("key", key), zap.Error(err))
	}
}

func logger(o options, st *store.Store) *zap.Logger {
	if o.logger != nil {
		return o.logger
	}
	return st.Logger()
}
