package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	debug   bool
	metrics bool
}

// renderFlags holds theme and styling flags.
type renderFlags struct {
	theme      string
	css        string
	assetPath  string
	noSanitize bool
}

// pipelineFlags holds execution policy flags.
type pipelineFlags struct {
	parallel   bool
	retries    int
	timeout    string
	noFallback bool
	noCache    bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common   commonFlags
	output   string
	format   string
	workers  int
	render   renderFlags
	pipeline pipelineFlags

	// changed records flags set on the command line, so that an explicit
	// false or zero still overrides the config file.
	changed map[string]bool
}

// set reports whether the named flag was given on the command line.
func (f *convertFlags) set(name string) bool {
	return f.changed[name]
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing and debug logs")
	fs.BoolVar(&f.debug, "debug", false, "log every state change")
	fs.BoolVar(&f.metrics, "metrics", false, "print a metrics summary after converting")
}

// addRenderFlags adds theme and styling flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.theme, "theme", "", "theme name (default \"default\")")
	fs.StringVar(&f.css, "css", "", "extra stylesheet appended after the theme")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory with custom styles/ and templates/")
	fs.BoolVar(&f.noSanitize, "no-sanitize", false, "keep raw HTML in slides as written")
}

// addPipelineFlags adds execution policy flags to a FlagSet.
func addPipelineFlags(fs *flag.FlagSet, f *pipelineFlags) {
	fs.BoolVar(&f.parallel, "parallel", false, "run independent stages concurrently")
	fs.IntVarP(&f.retries, "retries", "r", 0, "retries per failed stage (default 1)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "timeout per presentation (e.g., 30s, 2m)")
	fs.BoolVar(&f.noFallback, "no-fallback", false, "fail instead of writing HTML when PDF export fails")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable stage result caching")
}

// parseConvertFlags parses convert command flags and returns positional args.
// Errors and usage are written to w.
func parseConvertFlags(args []string, w io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(w)
	f := &convertFlags{changed: make(map[string]bool)}

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.format, "format", "f", formatHTML, "output format: html, gz, pdf")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addPipelineFlags(fs, &f.pipeline)

	fs.Usage = func() { printConvertUsage(w) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.changed[fl.Name] = true })

	return f, fs.Args(), nil
}
