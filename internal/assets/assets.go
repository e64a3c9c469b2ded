package assets

// Built-in asset names.
const (
	DefaultTheme         = "default"
	PresentationTemplate = "presentation"
)

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a built-in theme stylesheet by name.
// The name should not include the .css extension or path components.
// Returns ErrStyleNotFound if the theme does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads a built-in HTML template by name.
// Returns ErrTemplateNotFound if the template does not exist.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// Themes lists the built-in theme names, sorted.
func Themes() []string {
	names, _ := defaultLoader.Themes()
	return names
}
