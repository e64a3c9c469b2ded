package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/chancegraff/curtains-sub000/internal/assets"
)

// runThemes lists the themes available to --theme.
func runThemes(args []string, env *Environment) error {
	fs := flag.NewFlagSet("themes", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	assetPath := fs.String("asset-path", "", "directory with custom styles/")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	resolver, err := assets.NewAssetResolver(*assetPath)
	if err != nil {
		return err
	}
	names, err := resolver.Themes()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(env.Stdout, name)
	}
	return nil
}
