package pipeline

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func page(body string) string {
	return "<!DOCTYPE html>\n<html><head><title>Deck</title></head><body>" + body + "</body></html>"
}

// ---------------------------------------------------------------------------
// RewriteRelativePaths
// ---------------------------------------------------------------------------

func TestRewriteRelativePaths(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("expectations use unix paths")
	}

	tests := []struct {
		name         string
		body         string
		baseDir      string
		wantContains string
	}{
		{"relative image", `<img src="./images/logo.png">`, "/decks", `src="file:///decks/images/logo.png"`},
		{"bare relative image", `<img src="logo.png">`, "/decks", `src="file:///decks/logo.png"`},
		{"relative link", `<a href="notes.html">n</a>`, "/decks", `href="file:///decks/notes.html"`},
		{"absolute path", `<img src="/abs/logo.png">`, "/decks", `src="/abs/logo.png"`},
		{"https URL", `<img src="https://example.com/a.png">`, "/decks", `src="https://example.com/a.png"`},
		{"data URI", `<img src="data:image/png;base64,AB">`, "/decks", `src="data:image/png;base64,AB"`},
		{"anchor", `<a href="#slide-2">next</a>`, "/decks", `href="#slide-2"`},
		{"mail link", `<a href="mailto:me@example.com">me</a>`, "/decks", `href="mailto:me@example.com"`},
		{"traversal left alone", `<img src="../../etc/passwd">`, "/decks", `src="../../etc/passwd"`},
		{"media not rewritten", `<video src="./clip.mp4"></video>`, "/decks", `src="./clip.mp4"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RewriteRelativePaths(page(tt.body), tt.baseDir)
			if err != nil {
				t.Fatalf("RewriteRelativePaths() error = %v", err)
			}
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("RewriteRelativePaths() = %q, want to contain %q", got, tt.wantContains)
			}
		})
	}
}

func TestRewriteRelativePaths_Unchanged(t *testing.T) {
	t.Parallel()

	in := page(`<img src="./logo.png">`)
	got, err := RewriteRelativePaths(in, "")
	if err != nil || got != in {
		t.Errorf("empty base dir: got %q, %v", got, err)
	}

	in = page(`<p>no references</p>`)
	got, err = RewriteRelativePaths(in, t.TempDir())
	if err != nil || got != in {
		t.Errorf("nothing to rewrite: got %q, %v", got, err)
	}
}

func TestRewriteRelativePaths_KeepsDocument(t *testing.T) {
	t.Parallel()

	got, err := RewriteRelativePaths(page(`<img src="a.png" alt="logo" class="hero">`), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<!DOCTYPE html>", "<title>Deck</title>", `alt="logo"`, `class="hero"`, "file://"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %s", want, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestIsRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"./image.png", true},
		{"images/logo.png", true},
		{"../parent.png", true},
		{"", false},
		{"http://example.com/img.png", false},
		{"file:///abs/path.png", false},
		{"//cdn.example.com/img.png", false},
		{"#anchor", false},
		{"/absolute/path.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := isRelativePath(tt.path); got != tt.want {
				t.Errorf("isRelativePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsPathUnderDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		absPath string
		dir     string
		want    bool
	}{
		{"direct child", "/docs/image.png", "/docs", true},
		{"nested child", "/docs/images/logo.png", "/docs", true},
		{"trailing slash", "/docs/image.png", "/docs/", true},
		{"exact match", "/docs", "/docs", true},
		{"parent directory", "/etc/passwd", "/docs", false},
		{"similar prefix", "/docs-other/image.png", "/docs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			absPath, dir := filepath.FromSlash(tt.absPath), filepath.FromSlash(tt.dir)
			if got := isPathUnderDir(absPath, dir); got != tt.want {
				t.Errorf("isPathUnderDir(%q, %q) = %v, want %v", absPath, dir, got, tt.want)
			}
		})
	}
}

func TestPathToFileURL(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	if got := pathToFileURL("/docs/my images/logo.png"); got != "file:///docs/my%20images/logo.png" {
		t.Errorf("pathToFileURL() = %q", got)
	}
}
