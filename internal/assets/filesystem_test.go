package assets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// deckAssets lays out a custom asset directory: two themes, a stray
// non-stylesheet file and a presentation template.
func deckAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"styles/neon.css":              ".slide { color: magenta; }",
		"styles/paper.css":             ".slide { background: white; }",
		"styles/README.txt":            "not a theme",
		"templates/presentation.html":  "<main>{{range .Slides}}{{.HTML}}{{end}}</main>",
		"templates/presentation.notes": "not a template",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newDeckLoader(t *testing.T) *FilesystemLoader {
	t.Helper()
	l, err := NewFilesystemLoader(deckAssets(t))
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}
	return l
}

// ---------------------------------------------------------------------------
// NewFilesystemLoader
// ---------------------------------------------------------------------------

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "theme.css")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"directory", dir, nil},
		{"relative directory", ".", nil},
		{"empty", "", ErrInvalidBasePath},
		{"missing", filepath.Join(dir, "absent"), ErrInvalidBasePath},
		{"regular file", file, ErrInvalidBasePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := NewFilesystemLoader(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewFilesystemLoader(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
			if tt.wantErr == nil && !filepath.IsAbs(l.basePath) {
				t.Errorf("basePath = %q, want absolute", l.basePath)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// LoadStyle / LoadTemplate
// ---------------------------------------------------------------------------

func TestFilesystemLoader_Load(t *testing.T) {
	t.Parallel()

	l := newDeckLoader(t)
	style := l.LoadStyle
	template := l.LoadTemplate

	tests := []struct {
		name    string
		load    func(string) (string, error)
		asset   string
		want    string
		wantErr error
	}{
		{"theme", style, "neon", ".slide { color: magenta; }", nil},
		{"template", template, PresentationTemplate, "<main>{{range .Slides}}{{.HTML}}{{end}}</main>", nil},
		{"missing theme", style, "dark", "", ErrStyleNotFound},
		{"missing template", template, "handout", "", ErrTemplateNotFound},
		{"template extension is fixed", template, "presentation.notes", "", ErrInvalidAssetName},
		{"theme traversal", style, "../templates/presentation", "", ErrInvalidAssetName},
		{"template traversal", template, "../styles/neon", "", ErrInvalidAssetName},
		{"empty theme", style, "", "", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load(tt.asset)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("load(%q) error = %v, want %v", tt.asset, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("load(%q) = %q, want %q", tt.asset, got, tt.want)
			}
		})
	}
}

func TestFilesystemLoader_LoadRejectsSymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.css")
	if err := os.WriteFile(secret, []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}
	dir := deckAssets(t)
	if err := os.Symlink(secret, filepath.Join(dir, "styles", "leak.css")); err != nil {
		t.Fatal(err)
	}
	l, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.LoadStyle("leak"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("LoadStyle(leak) error = %v, want ErrPathTraversal", err)
	}
}

// ---------------------------------------------------------------------------
// Themes
// ---------------------------------------------------------------------------

func TestFilesystemLoader_Themes(t *testing.T) {
	t.Parallel()

	t.Run("lists stylesheets sorted", func(t *testing.T) {
		t.Parallel()

		got, err := newDeckLoader(t).Themes()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"neon", "paper"}, got); diff != "" {
			t.Errorf("Themes() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no styles directory", func(t *testing.T) {
		t.Parallel()

		l, err := NewFilesystemLoader(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		got, err := l.Themes()
		if err != nil || len(got) != 0 {
			t.Errorf("Themes() = %v, %v; want none", got, err)
		}
	})
}
