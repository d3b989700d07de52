package distill

import (
	"fmt"
	"time"
)

// Config holds the tunables of the distillation pipeline.
type Config struct {
	// ScanInterval is the pause after each selector scan.
	ScanInterval time.Duration

	// HeartbeatPoll is how often the selector rechecks the live agent's
	// heartbeat while it is stale.
	HeartbeatPoll time.Duration

	// HeartbeatMaxAge is the age beyond which the live agent is considered
	// stopped and scanning pauses.
	HeartbeatMaxAge time.Duration

	// Lookback limits selection to threads active within this window.
	// Zero selects regardless of age.
	Lookback time.Duration

	// QueueCapacity bounds the selector to distiller queue.
	QueueCapacity int

	// MessageLimit is the page size of messages read per distillation.
	MessageLimit int

	// TranscriptBudget is the maximum transcript length in characters.
	TranscriptBudget int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ScanInterval:     time.Minute,
		HeartbeatPoll:    30 * time.Second,
		HeartbeatMaxAge:  5 * time.Minute,
		QueueCapacity:    16,
		MessageLimit:     50,
		TranscriptBudget: 12000,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.ScanInterval <= 0:
		return fmt.Errorf("%w: scan interval must be positive", ErrInvalidConfig)
	case c.HeartbeatPoll <= 0:
		return fmt.Errorf("%w: heartbeat poll must be positive", ErrInvalidConfig)
	case c.HeartbeatMaxAge <= 0:
		return fmt.Errorf("%w: heartbeat max age must be positive", ErrInvalidConfig)
	case c.Lookback < 0:
		return fmt.Errorf("%w: lookback cannot be negative", ErrInvalidConfig)
	case c.QueueCapacity < 1:
		return fmt.Errorf("%w: queue capacity must be positive", ErrInvalidConfig)
	case c.MessageLimit < 1:
		return fmt.Errorf("%w: message limit must be positive", ErrInvalidConfig)
	case c.TranscriptBudget < 1:
		return fmt.Errorf("%w: transcript budget must be positive", ErrInvalidConfig)
	}
	return nil
}
