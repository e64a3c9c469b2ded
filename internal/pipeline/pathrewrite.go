package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RewriteRelativePaths converts relative img[src] and a[href] values in a
// rendered page to absolute file:// URLs under baseDir. The PDF exporter
// loads the page from a temp file, where relative paths would no longer
// resolve. An empty baseDir returns the page unchanged.
//
// URLs, anchors, absolute paths and paths escaping baseDir are left alone.
func RewriteRelativePaths(page, baseDir string) (string, error) {
	if baseDir == "" {
		return page, nil
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	changed := false
	doc.Find("img[src], a[href]").Each(func(_ int, s *goquery.Selection) {
		attr := "src"
		if goquery.NodeName(s) == "a" {
			attr = "href"
		}
		val, _ := s.Attr(attr)
		if !isRelativePath(val) {
			return
		}
		absPath := filepath.Join(absBase, val)
		if !isPathUnderDir(absPath, absBase) {
			return
		}
		s.SetAttr(attr, pathToFileURL(absPath))
		changed = true
	})
	if !changed {
		return page, nil
	}
	return doc.Html()
}

// isRelativePath reports whether path is a local relative reference.
func isRelativePath(path string) bool {
	if path == "" || filepath.IsAbs(path) {
		return false
	}
	for _, prefix := range []string{"http://", "https://", "file://", "data:", "mailto:", "//", "#"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(absPath)+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
