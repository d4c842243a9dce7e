package mboxfile

import "log/slog"

type config struct {
	logger *slog.Logger
}

// Option configures an MboxFile.
type Option func(*config)

// WithLogger sets the logger used for load diagnostics and skipped messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
