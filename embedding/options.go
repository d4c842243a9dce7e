package embedding

import (
	"log/slog"
	"runtime"
	"time"
)

const (
	// DefaultQueueCapacity bounds the shared task queue.
	DefaultQueueCapacity = 100

	// DefaultRetryDelay is the backoff before the second attempt of a chunk.
	DefaultRetryDelay = 500 * time.Millisecond
)

type config struct {
	workers       int
	queueCapacity int
	maxAttempts   int
	baseDelay     time.Duration
	logger        *slog.Logger
}

func defaultConfig() config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return config{
		workers:       workers,
		queueCapacity: DefaultQueueCapacity,
		maxAttempts:   1,
		baseDelay:     DefaultRetryDelay,
		logger:        slog.Default(),
	}
}

// Option configures an Orchestrator.
type Option func(*config) error

// WithWorkers sets the number of long-lived workers, each owning one embedder.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return ErrInvalidWorkers
		}
		c.workers = n
		return nil
	}
}

// WithQueueCapacity sets the capacity of the shared task queue.
// Producers block when it is full. Values below 1 are raised to 1.
func WithQueueCapacity(n int) Option {
	return func(c *config) error {
		if n < 1 {
			n = 1
		}
		c.queueCapacity = n
		return nil
	}
}

// WithRetry makes each chunk try up to maxAttempts times, sleeping
// baseDelay, 2*baseDelay, ... between attempts. Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *config) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}
