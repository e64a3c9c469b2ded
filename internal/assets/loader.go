package assets

// AssetLoader defines the contract for loading theme stylesheets and HTML
// templates.
type AssetLoader interface {
	// LoadStyle loads a theme stylesheet by name (without .css extension).
	// Returns ErrStyleNotFound if the theme doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) (string, error)

	// Themes lists the available theme names, sorted.
	Themes() ([]string, error)
}
