package vectorindex

import (
	"fmt"
	"time"
)

// Config holds configuration for a vector index cache.
type Config struct {
	// Corpus names the embedding set, e.g. "catalog". It prefixes every
	// persisted file.
	Corpus string

	// Dimensions is the expected embedding size. Rows of any other size are
	// skipped; the empty-corpus placeholder has this size.
	Dimensions int

	// BatchSize is the number of rows fetched per page during a rebuild.
	BatchSize int

	// MaxRetries is the number of attempts per page fetch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Corpus:     "catalog",
		Dimensions: 768,
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Corpus == "" {
		return fmt.Errorf("%w: corpus is required", ErrInvalidConfig)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidMaxAttempts)
	}
	return nil
}
