package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/chancegraff/curtains-sub000/internal/fileutil"
	"github.com/chancegraff/curtains-sub000/internal/lock"
	"github.com/chancegraff/curtains-sub000/internal/slides"
)

// Output formats, chosen by the destination's extension.
const (
	FormatHTML = "html"
	FormatGzip = "gz"
	FormatPDF  = "pdf"
)

// FormatOf returns the output format for path. Anything that is not .gz or
// .pdf is written as HTML.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return FormatGzip
	case ".pdf":
		return FormatPDF
	default:
		return FormatHTML
	}
}

// Writer stores rendered pages atomically.
type Writer struct {
	pdf  PDFExporter // nil: .pdf destinations fail
	perm os.FileMode
}

// NewWriter returns a Writer exporting PDFs through pdf.
func NewWriter(pdf PDFExporter) *Writer {
	return &Writer{pdf: pdf, perm: 0o644}
}

// Write encodes r for path and writes it. When locks is non-nil the write
// holds the store's advisory lock, so concurrent writers in one store never
// interleave.
func (w *Writer) Write(ctx context.Context, locks *lock.Manager, path string, r *slides.Rendered) (slides.WriteResult, error) {
	if path == "" {
		return slides.WriteResult{}, ErrEmptyPath
	}
	if r == nil {
		return slides.WriteResult{Path: path}, fmt.Errorf("%w: nil rendered page", ErrUnexpectedType)
	}

	var written int
	write := func() error {
		data, err := w.encode(ctx, path, r.HTML)
		if err != nil {
			return err
		}
		err = fileutil.WriteAtomic(path, w.perm, func(out io.Writer) error {
			_, err := out.Write(data)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		written = len(data)
		return nil
	}

	var err error
	if locks != nil {
		err = locks.With(ctx, write)
	} else {
		err = write()
	}
	if err != nil {
		return slides.WriteResult{Path: path}, err
	}
	return slides.WriteResult{Path: path, Written: true, Bytes: written}, nil
}

func (w *Writer) encode(ctx context.Context, path, page string) ([]byte, error) {
	switch FormatOf(path) {
	case FormatPDF:
		if w.pdf == nil {
			return nil, fmt.Errorf("%w: PDF export is not configured", ErrWrite)
		}
		return w.pdf.Export(ctx, page, filepath.Dir(path))
	case FormatGzip:
		return gzipPage(page, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	default:
		return []byte(page), nil
	}
}

// gzipPage compresses page, recording name in the gzip header.
func gzipPage(page, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Name = name
	if _, err := io.WriteString(zw, page); err != nil {
		return nil, fmt.Errorf("%w: compressing: %v", ErrWrite, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: compressing: %v", ErrWrite, err)
	}
	return buf.Bytes(), nil
}
