package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeAsset creates {dir}/{sub}/{file} with content.
func writeAsset(t *testing.T, dir, sub, file, content string) {
	t.Helper()
	full := filepath.Join(dir, sub)
	if err := os.MkdirAll(full, 0755); err != nil {
		t.Fatalf("failed to create %s dir: %v", sub, err)
	}
	if err := os.WriteFile(filepath.Join(full, file), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", file, err)
	}
}

func TestNewAssetResolver(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses embedded only", func(t *testing.T) {
		t.Parallel()

		resolver, err := NewAssetResolver("")
		if err != nil {
			t.Fatalf("NewAssetResolver(\"\") error = %v", err)
		}
		if resolver.custom != nil {
			t.Error("expected no custom loader for empty path")
		}
	})

	t.Run("valid custom path", func(t *testing.T) {
		t.Parallel()

		resolver, err := NewAssetResolver(t.TempDir())
		if err != nil {
			t.Fatalf("NewAssetResolver() error = %v", err)
		}
		if resolver.custom == nil {
			t.Error("expected custom loader for valid path")
		}
	})

	t.Run("invalid custom path returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewAssetResolver("/nonexistent/path/abc123xyz")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewAssetResolver() error = %v, want ErrInvalidBasePath", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Fallback
// ---------------------------------------------------------------------------

func TestAssetResolver_LoadStyle(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeAsset(t, tmpDir, "styles", "brand.css", "/* brand */")
	writeAsset(t, tmpDir, "styles", "dark.css", "/* dark override */")

	resolver, err := NewAssetResolver(tmpDir)
	if err != nil {
		t.Fatalf("NewAssetResolver() error = %v", err)
	}

	tests := []struct {
		name    string
		theme   string
		want    string
		wantErr error
	}{
		{"custom only", "brand", "/* brand */", nil},
		{"custom overrides embedded", "dark", "/* dark override */", nil},
		{"falls back to embedded", "minimal", "", nil},
		{"neither has it", "nonexistent-xyz", "", ErrStyleNotFound},
		{"validation error is not fallen back", "../secret", "", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.LoadStyle(tt.theme)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyle(%q) error = %v, want %v", tt.theme, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) error = %v", tt.theme, err)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("LoadStyle(%q) = %q, want %q", tt.theme, got, tt.want)
			}
			if got == "" {
				t.Errorf("LoadStyle(%q) returned empty content", tt.theme)
			}
		})
	}
}

func TestAssetResolver_LoadTemplate(t *testing.T) {
	t.Parallel()

	t.Run("embedded presentation", func(t *testing.T) {
		t.Parallel()

		resolver, _ := NewAssetResolver("")
		got, err := resolver.LoadTemplate(PresentationTemplate)
		if err != nil {
			t.Fatalf("LoadTemplate() error = %v", err)
		}
		if !strings.Contains(got, "{{.Title}}") {
			t.Error("embedded presentation template has no title action")
		}
	})

	t.Run("custom presentation overrides embedded", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeAsset(t, tmpDir, "templates", "presentation.html", "<main>{{.Title}}</main>")
		resolver, _ := NewAssetResolver(tmpDir)

		got, err := resolver.LoadTemplate(PresentationTemplate)
		if err != nil {
			t.Fatalf("LoadTemplate() error = %v", err)
		}
		if got != "<main>{{.Title}}</main>" {
			t.Errorf("LoadTemplate() = %q", got)
		}
	})
}

func TestAssetResolver_Themes(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeAsset(t, tmpDir, "styles", "brand.css", "")
	writeAsset(t, tmpDir, "styles", "dark.css", "")
	writeAsset(t, tmpDir, "styles", "notes.txt", "")

	resolver, err := NewAssetResolver(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := resolver.Themes()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"brand", "dark", "default", "minimal"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Themes() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{ErrStyleNotFound, true},
		{ErrTemplateNotFound, true},
		{fmt.Errorf("%w: %q", ErrStyleNotFound, "x"), true},
		{ErrInvalidAssetName, false},
		{ErrAssetRead, false},
		{errors.New("some error"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isNotFoundError(tt.err); got != tt.want {
			t.Errorf("isNotFoundError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
