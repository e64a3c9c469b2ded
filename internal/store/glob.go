package store

import (
	"regexp"
	"strings"
)

// GlobToRegexp converts a cache key glob to an anchored regular expression.
// '*' matches any run of characters, '?' matches exactly one, and every
// other character is literal.
func GlobToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.Grow(len(pattern) + 8)
	b.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}

// MatchGlob reports whether key matches the glob pattern.
func MatchGlob(pattern, key string) bool {
	return GlobToRegexp(pattern).MatchString(key)
}
