package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// ExperimentID records the experiment identifier under the key "experiment_id".
func ExperimentID(id string) slog.Attr {
	return slog.String("experiment_id", id)
}

// Stage records the rollout stage under the key "stage".
func Stage(stage string) slog.Attr {
	return slog.String("stage", stage)
}

// Dimension records the stage dimension under the key "dimension".
func Dimension(dimension string) slog.Attr {
	return slog.String("dimension", dimension)
}

// Treatment records the assigned or tracked treatment under the key "treatment".
func Treatment(treatment string) slog.Attr {
	return slog.String("treatment", treatment)
}

// BatchID records a metric flush batch id under the key "batch_id".
func BatchID(id string) slog.Attr {
	return slog.String("batch_id", id)
}

// RequestID records the request identifier under the key "request_id".
// An empty id yields an empty Attr.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Attempt records a delivery attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count records a number of items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
