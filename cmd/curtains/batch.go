package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	curtains "github.com/chancegraff/curtains-sub000"
	"github.com/chancegraff/curtains-sub000/internal/hints"
)

// Sentinel errors for batch operations.
var (
	ErrNoInput         = errors.New("no input specified")
	ErrReadSource      = errors.New("failed to read presentation source")
	ErrConverterInit   = errors.New("failed to initialize converter")
	ErrBatchIncomplete = errors.New("conversions failed")
)

// CLIConverter is the interface for the conversion service.
type CLIConverter interface {
	Convert(ctx context.Context, input curtains.Input) (*curtains.Result, error)
}

// Compile-time interface implementation check.
var _ CLIConverter = (*curtains.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire() CLIConverter
	Release(CLIConverter)
	InitError() error
	Size() int
}

// poolAdapter adapts curtains.ConverterPool to Pool.
type poolAdapter struct {
	pool *curtains.ConverterPool
}

func (a *poolAdapter) Acquire() CLIConverter {
	// A nil *Converter must not become a non-nil interface.
	if conv := a.pool.Acquire(); conv != nil {
		return conv
	}
	return nil
}

func (a *poolAdapter) Release(c CLIConverter) {
	conv, ok := c.(*curtains.Converter)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", c))
	}
	a.pool.Release(conv)
}

func (a *poolAdapter) InitError() error { return a.pool.InitError() }

func (a *poolAdapter) Size() int { return a.pool.Size() }

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Slides     int
	Recovered  error // set when the output came from a fallback stage
	Err        error
	Duration   time.Duration
}

// convertBatch converts files concurrently, at most pool.Size() at a time.
// A failed file does not stop the others; results keep the order of files.
func convertBatch(ctx context.Context, pool Pool, files []FileToConvert) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	results := make([]ConversionResult, len(files))
	var g errgroup.Group
	g.SetLimit(pool.Size())

	for i, f := range files {
		g.Go(func() error {
			results[i] = convertFile(ctx, pool, f)
			return nil
		})
	}

	_ = g.Wait() // workers never return errors
	return results
}

// convertFile converts one file with a converter borrowed from pool.
func convertFile(ctx context.Context, pool Pool, f FileToConvert) ConversionResult {
	start := time.Now()
	result := ConversionResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	fail := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrReadSource, err))
	}

	conv := pool.Acquire()
	if conv == nil {
		if initErr := pool.InitError(); initErr != nil {
			return fail(fmt.Errorf("%w: %w", ErrConverterInit, initErr))
		}
		return fail(ErrConverterInit)
	}
	defer pool.Release(conv)

	res, err := conv.Convert(ctx, curtains.Input{
		Source: string(content),
		Output: f.OutputPath,
	})
	if err != nil {
		return fail(err)
	}

	result.OutputPath = res.Path
	result.Slides = res.SlideCount
	result.Recovered = res.Recovered
	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
	FellBack  int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Recovered != nil:
			summary.Succeeded++
			summary.FellBack++
		default:
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs conversion results and returns the summary.
func printResults(results []ConversionResult, quiet, verbose bool, env *Environment) ResultSummary {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if r.Recovered != nil {
			hint := ""
			if errors.Is(r.Recovered, curtains.ErrBrowserConnect) {
				hint = hints.ForBrowserConnect()
			}
			fmt.Fprintf(env.Stderr, "warning: %s: wrote %s instead: %v%s\n", r.InputPath, r.OutputPath, r.Recovered, hint)
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d slides, %v)\n",
				r.InputPath, r.OutputPath, r.Slides, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary
}

// batchError reports failed conversions, wrapping the first failure so the
// exit code reflects its cause.
func batchError(results []ConversionResult) error {
	summary := countResults(results)
	if summary.Failed == 0 {
		return nil
	}
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%w: %d of %d: %w", ErrBatchIncomplete, summary.Failed, len(results), r.Err)
		}
	}
	return nil
}
