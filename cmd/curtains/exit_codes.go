package main

import (
	"context"
	"errors"
	"os"

	curtains "github.com/chancegraff/curtains-sub000"
	"github.com/chancegraff/curtains-sub000/internal/assets"
	"github.com/chancegraff/curtains-sub000/internal/config"
	"github.com/chancegraff/curtains-sub000/internal/hints"
)

// Exit codes for the curtains CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or document
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, curtains.ErrBrowserConnect) ||
		errors.Is(err, curtains.ErrPageCreate) ||
		errors.Is(err, curtains.ErrPageLoad) ||
		errors.Is(err, curtains.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadSource) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, curtains.ErrCustomCSS) ||
		errors.Is(err, curtains.ErrWrite) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrEnvConfig) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidPattern) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrOutputConflict) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, curtains.ErrInvalidOption) ||
		errors.Is(err, curtains.ErrEmptySource) ||
		errors.Is(err, curtains.ErrEmptyDocument) ||
		errors.Is(err, curtains.ErrMetadata) ||
		errors.Is(err, curtains.ErrSlideCSS) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, curtains.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, curtains.ErrStageTimeout),
		errors.Is(err, curtains.ErrPipelineTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths("curtains"))
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForThemeNotFound(assets.Themes())
	case errors.Is(err, curtains.ErrEmptyDocument):
		return hints.ForNoSlides()
	case errors.Is(err, curtains.ErrWrite):
		return hints.ForOutputDirectory()
	}
	return ""
}
