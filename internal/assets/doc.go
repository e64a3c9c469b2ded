// Package assets provides presentation themes and the page template.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in themes)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// EmbeddedLoader provides the built-in themes (default, dark, minimal) and
// the presentation template, embedded at compile time.
//
// FilesystemLoader allows users to provide custom themes from a directory,
// with path traversal protection and symlink resolution.
//
// AssetResolver is the loader used by the render stage. It tries the custom
// FilesystemLoader first, falling back to EmbeddedLoader if the asset is not
// found. This enables overriding one theme while keeping the others.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {theme}.css          # theme stylesheet (e.g., dark.css)
//	└── templates/
//	    └── presentation.html    # page template (html/template syntax)
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
