package hints

// ForBrowserConnect tests do not call t.Parallel: they use t.Setenv and
// replace the package-level IsInContainer.

import (
	"path/filepath"
	"strings"
	"testing"
)

func withContainer(t *testing.T, in bool) {
	t.Helper()
	orig := IsInContainer
	t.Cleanup(func() { IsInContainer = orig })
	IsInContainer = func() bool { return in }
}

func TestForBrowserConnect(t *testing.T) {
	tests := []struct {
		name        string
		container   bool
		env         map[string]string
		wantSandbox bool
		wantBin     bool
	}{
		{"in CI", false, map[string]string{"CI": "true"}, true, true},
		{"in docker", true, nil, true, true},
		{"sandbox already set", true, map[string]string{"ROD_NO_SANDBOX": "1"}, false, true},
		{"browser bin set", false, map[string]string{"ROD_BROWSER_BIN": "/usr/bin/chromium"}, false, false},
		{"local machine", false, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withContainer(t, tt.container)
			for _, k := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "ROD_NO_SANDBOX", "ROD_BROWSER_BIN"} {
				t.Setenv(k, tt.env[k])
			}

			hint := ForBrowserConnect()

			if !strings.HasPrefix(hint, "\n  hint: ") {
				t.Errorf("hint format inconsistent: %q", hint)
			}
			if got := strings.Contains(hint, "ROD_NO_SANDBOX"); got != tt.wantSandbox {
				t.Errorf("sandbox suggestion = %v, want %v (%q)", got, tt.wantSandbox, hint)
			}
			if got := strings.Contains(hint, "ROD_BROWSER_BIN"); got != tt.wantBin {
				t.Errorf("browser bin suggestion = %v, want %v (%q)", got, tt.wantBin, hint)
			}
			if !strings.Contains(hint, ".html") {
				t.Errorf("missing html fallback suggestion: %q", hint)
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	if hint := ForConfigNotFound(nil); !strings.Contains(hint, "--config") {
		t.Errorf("hint = %q", hint)
	}

	user := filepath.Join("home", "me", ".config", "curtains", "deck.yaml")
	hint := ForConfigNotFound([]string{"deck.yaml", user})
	if !strings.Contains(hint, "create "+user) {
		t.Errorf("hint = %q, want it to suggest %s", hint, user)
	}
}

func TestForThemeNotFound(t *testing.T) {
	t.Parallel()

	if hint := ForThemeNotFound(nil); hint != "" {
		t.Errorf("expected empty hint, got %q", hint)
	}
	if hint := ForThemeNotFound([]string{"dark", "default"}); !strings.Contains(hint, "dark, default") {
		t.Errorf("hint = %q", hint)
	}
}

func TestFormat_Consistency(t *testing.T) {
	t.Parallel()

	for _, h := range []string{ForTimeout(), ForOutputDirectory(), ForNoSlides(), ForThemeNotFound([]string{"x"})} {
		if !strings.HasPrefix(h, "\n  hint: ") {
			t.Errorf("hint format inconsistent: %q", h)
		}
	}
	if format("") != "" || formatHints(nil) != "" {
		t.Error("empty hints should format to nothing")
	}
}
