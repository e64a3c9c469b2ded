package curtains

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ConverterPool manages Converter instances for parallel conversion.
// Each converter has its own store and browser, so pooled conversions never
// contend. Converters are created lazily on first acquire to avoid startup
// delay.
type ConverterPool struct {
	size       int
	opts       []Option
	converters []*Converter
	sem        chan *Converter
	mu         sync.Mutex
	created    int
	closed     bool
	initErr    error
}

// NewConverterPool creates a pool with capacity for n converters built with
// opts. Converters are created when acquired, not at pool creation.
func NewConverterPool(n int, opts ...Option) *ConverterPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &ConverterPool{
		size:       n,
		opts:       opts,
		converters: make([]*Converter, 0, n),
		sem:        make(chan *Converter, n),
	}
}

// Acquire gets a converter from the pool, creating one if needed.
// Blocks if all converters are in use. Returns nil if creation fails or the
// pool is closed; InitError reports why.
func (p *ConverterPool) Acquire() *Converter {
	// Try to get an existing converter (non-blocking)
	select {
	case conv := <-p.sem:
		return conv
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create outside the lock
		conv, err := NewConverter(p.opts...)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.created--
			p.initErr = err
			return nil
		}
		p.converters = append(p.converters, conv)
		return conv
	}
	p.mu.Unlock()

	// All converters created, wait for one to be released
	return <-p.sem
}

// Release returns a converter to the pool.
// The lock is released before sending to avoid deadlock when the channel is
// full.
func (p *ConverterPool) Release(conv *Converter) {
	if conv == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sem <- conv
}

// InitError returns the last converter creation error.
func (p *ConverterPool) InitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initErr
}

// Close releases all converters.
// Returns an aggregated error if multiple converters fail to close.
func (p *ConverterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	converters := p.converters
	p.mu.Unlock()

	var errs []error
	for _, conv := range converters {
		if err := conv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ConverterPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	return min(max(n, MinPoolSize), MaxPoolSize)
}
