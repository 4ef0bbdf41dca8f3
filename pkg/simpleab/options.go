package simpleab

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/simpleab/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for SDK diagnostics.
// The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBatchIDGenerator overrides how flush batch ids are generated.
func WithBatchIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newBatchID = fn
		}
	}
}

// WithExperiments seeds the cache, e.g. from a previous process or a fixture.
func WithExperiments(defs ...ExperimentDefinition) Option {
	return func(c *Client) {
		c.seed = append(c.seed, defs...)
	}
}

func defaultLogger() *slog.Logger {
	return logger.Discard()
}

func defaultBatchID() string {
	return uuid.NewString()
}
