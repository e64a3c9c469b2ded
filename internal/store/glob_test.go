package store

import "testing"

func TestMatchGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"parse:*", "parse:1", true},
		{"parse:*", "parse:", true},
		{"parse:*", "render:1", false},
		{"parse:*", "xparse:1", false},
		{"parse:?", "parse:12", false},
		{"parse:?", "parse:1", true},
		{"*:1", "render:1", true},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"[x]", "[x]", true},
		{"(a|b)", "a", false},
		{"*", "anything\nat all", true},
		{"", "", true},
		{"", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.key, func(t *testing.T) {
			t.Parallel()
			if got := MatchGlob(tt.pattern, tt.key); got != tt.want {
				t.Errorf("MatchGlob(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
			}
		})
	}
}

func TestGlobToRegexp_IsAnchored(t *testing.T) {
	t.Parallel()

	re := GlobToRegexp("parse")
	if re.String() != `(?s)^parse$` {
		t.Errorf("regexp = %q", re.String())
	}
}
