package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Parse flags first to get verbose; parse errors are reported by runMain.
	verbose := false
	if flags, _, err := parseConvertFlags(os.Args[1:], io.Discard); err == nil {
		verbose = flags.common.verbose
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// runMain dispatches the command in args and returns the process exit code.
// args[0] is the program name.
func runMain(ctx context.Context, args []string, env *Environment) int {
	command, rest := splitCommand(args[1:])

	var err error
	switch command {
	case "version":
		fmt.Fprintf(env.Stdout, "curtains %s\n", Version)
		return ExitSuccess
	case "help":
		return runHelp(rest, env)
	case "themes":
		err = runThemes(rest, env)
	default:
		err = runConvert(ctx, rest, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// commands lists the subcommands. Anything else is an input for convert.
var commands = map[string]bool{
	"convert": true,
	"themes":  true,
	"version": true,
	"help":    true,
}

// splitCommand separates the subcommand from its arguments. Without one the
// command is convert.
func splitCommand(args []string) (string, []string) {
	if len(args) > 0 && commands[args[0]] {
		return args[0], args[1:]
	}
	return "convert", args
}
