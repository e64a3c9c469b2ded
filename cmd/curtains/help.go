package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: curtains [command] [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Compile presentations to HTML, gzip or PDF (default)")
	fmt.Fprintln(w, "  themes     List available themes")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'curtains help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: curtains [convert] <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile presentation sources to self-contained HTML.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    File, directory, or glob (e.g. \"talks/**/*.md\")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -f, --format <s>          Output format: html, gz, pdf (default html)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --theme <name>        Theme name (see 'curtains themes')")
	fmt.Fprintln(w, "      --css <path>          Extra stylesheet appended after the theme")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory with custom styles/ and templates/")
	fmt.Fprintln(w, "      --no-sanitize         Keep raw HTML in slides as written")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pipeline:")
	fmt.Fprintln(w, "      --parallel            Run independent stages concurrently")
	fmt.Fprintln(w, "  -r, --retries <n>         Retries per failed stage (default 1)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Timeout per presentation (default 30s)")
	fmt.Fprintln(w, "      --no-fallback         Fail instead of writing HTML when PDF export fails")
	fmt.Fprintln(w, "      --no-cache            Disable stage result caching")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing and debug logs")
	fmt.Fprintln(w, "      --debug               Log every state change")
	fmt.Fprintln(w, "      --metrics             Print a metrics summary to stderr")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CURTAINS_CONFIG, CURTAINS_THEME, CURTAINS_TIMEOUT, CURTAINS_WORKERS,")
	fmt.Fprintln(w, "  CURTAINS_OUTPUT_DIR, CURTAINS_LOG_LEVEL")
	fmt.Fprintln(w, "  Precedence: flags > environment > config file > defaults")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "themes":
		fmt.Fprintln(env.Stdout, "Usage: curtains themes [--asset-path <dir>]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "List built-in themes and those under <dir>/styles.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: curtains version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: curtains help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
