package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/chancegraff/curtains-sub000/internal/fileutil"
	"github.com/chancegraff/curtains-sub000/internal/process"
)

// PDFExporter renders a presentation page to PDF, one slide per page.
// Relative references in page resolve against baseDir.
type PDFExporter interface {
	Export(ctx context.Context, page, baseDir string) ([]byte, error)
	Close() error
}

// Compile-time interface check
var _ PDFExporter = (*RodExporter)(nil)

// Slide page size in inches: 16:9, matching the 1280x720 print layout of
// the built-in themes.
const (
	slideWidthInches  = 13.333
	slideHeightInches = 7.5
)

// DefaultPDFTimeout bounds page loading when ctx has no deadline.
const DefaultPDFTimeout = 30 * time.Second

// RodExporter prints pages with headless Chrome via go-rod.
// The browser is launched on first use; rod downloads Chromium if none is
// found. Safe for concurrent use.
type RodExporter struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

// NewRodExporter creates a RodExporter. timeout <= 0 uses DefaultPDFTimeout.
func NewRodExporter(timeout time.Duration) *RodExporter {
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	return &RodExporter{timeout: timeout}
}

// connect lazily launches and connects to the browser. Callers hold mu.
func (r *RodExporter) connect() (*rod.Browser, error) {
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.Terminate(l.PID())
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher = l
	r.browser = browser
	return browser, nil
}

// Close shuts the browser down and removes its profile directory.
func (r *RodExporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	process.Terminate(r.launcher.PID())
	r.launcher.Cleanup()
	r.browser, r.launcher = nil, nil
	return err
}

// Export writes page to a temp file, opens it in headless Chrome and prints
// it to PDF.
func (r *RodExporter) Export(ctx context.Context, page, baseDir string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := RewriteRelativePaths(page, baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving relative paths: %v", ErrPDFGeneration, err)
	}
	tmpPath, cleanup, err := fileutil.WriteTempFile(page, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	r.mu.Lock()
	browser, err := r.connect()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: pathToFileURL(tmpPath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = tab.Close() }()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if err := tab.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := tab.PDF(slidePDFOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// slidePDFOptions prints borderless 16:9 pages with backgrounds. The theme's
// @page rule wins when present.
func slidePDFOptions() *proto.PagePrintToPDF {
	zero := 0.0
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(slideWidthInches),
		PaperHeight:       floatPtr(slideHeightInches),
		MarginTop:         &zero,
		MarginBottom:      &zero,
		MarginLeft:        &zero,
		MarginRight:       &zero,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
