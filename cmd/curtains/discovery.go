package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	curtains "github.com/chancegraff/curtains-sub000"
	"github.com/chancegraff/curtains-sub000/internal/fileutil"
)

// Output formats accepted by --format.
const (
	formatHTML = "html"
	formatGzip = "gz"
	formatPDF  = "pdf"
)

// Sentinel errors for file discovery.
var (
	ErrInvalidExtension   = errors.New("file must have a .md, .markdown, .curtain or .curtains extension")
	ErrInvalidPattern     = errors.New("invalid glob pattern")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrOutputConflict     = errors.New("several inputs cannot share one output file")
)

// sourceExtensions lists the extensions picked up from directories and globs.
var sourceExtensions = []string{".md", ".markdown", ".curtain", ".curtains"}

// outputExtensions maps a file-like --output suffix to its format.
var outputExtensions = map[string]string{
	".html": formatHTML,
	".htm":  formatHTML,
	".gz":   formatGzip,
	".pdf":  formatPDF,
}

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// discoverFiles expands inputs into files to convert. An input is a file, a
// directory (walked recursively) or a doublestar glob such as
// "talks/**/*.md". Output paths keep each file's position relative to the
// directory or glob base it was found under.
func discoverFiles(inputs []string, output, format string) ([]FileToConvert, error) {
	var files []FileToConvert
	seen := make(map[string]bool)
	add := func(path, base string) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, FileToConvert{
			InputPath:  path,
			OutputPath: resolveOutputPath(path, output, base, format),
		})
	}

	for _, input := range inputs {
		if isGlob(input) {
			matches, base, err := expandGlob(input)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if isSource(m) {
					add(m, base)
				}
			}
			continue
		}

		info, err := os.Stat(input)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := validateSourceExtension(input); err != nil {
				return nil, err
			}
			add(input, "")
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if !d.IsDir() && isSource(path) {
				add(path, input)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(files) > 1 && isOutputFile(output) {
		return nil, fmt.Errorf("%w: %d files -> %s", ErrOutputConflict, len(files), output)
	}
	return files, nil
}

// isGlob reports whether input contains doublestar meta characters.
func isGlob(input string) bool {
	return strings.ContainsAny(input, "*?[{")
}

// expandGlob returns the files matching pattern and the directory the
// pattern is anchored at.
func expandGlob(pattern string) ([]string, string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(filepath.Clean(pattern)))
	return matches, filepath.FromSlash(base), nil
}

func isSource(path string) bool {
	return slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(path)))
}

// isOutputFile reports whether --output names a file rather than a directory.
func isOutputFile(output string) bool {
	_, ok := outputExtensions[strings.ToLower(filepath.Ext(output))]
	return ok
}

// resolveOutputPath determines the output path for a source file.
func resolveOutputPath(inputPath, output, baseInputDir, format string) string {
	if isOutputFile(output) {
		return output
	}

	suffix := outputSuffix(format)
	if output == "" {
		return fileutil.OutputPath(inputPath, "", suffix)
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil && !strings.HasPrefix(relPath, "..") {
			return fileutil.OutputPath(inputPath, filepath.Join(output, filepath.Dir(relPath)), suffix)
		}
	}

	return fileutil.OutputPath(inputPath, output, suffix)
}

// outputSuffix returns the file suffix for format. Gzip keeps the .html so
// the decompressed file opens in a browser.
func outputSuffix(format string) string {
	switch format {
	case formatGzip:
		return ".html.gz"
	case formatPDF:
		return ".pdf"
	default:
		return ".html"
	}
}

// validateSourceExtension checks that an explicitly named file is a
// presentation source.
func validateSourceExtension(path string) error {
	if !isSource(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateFormat checks --format.
func validateFormat(format string) error {
	switch format {
	case formatHTML, formatGzip, formatPDF:
		return nil
	}
	return fmt.Errorf("%w: %q (must be html, gz, or pdf)", ErrInvalidFormat, format)
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > curtains.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, curtains.MaxPoolSize)
	}
	return nil
}
