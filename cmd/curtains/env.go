package main

import (
	"io"
	"os"

	curtains "github.com/chancegraff/curtains-sub000"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer

	// Exporter replaces headless Chrome for .pdf outputs when set.
	Exporter curtains.PDFExporter
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
