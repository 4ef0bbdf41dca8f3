package simpleab

import "context"

// Transport performs the remote calls the SDK depends on.
// Implementations own authentication, timeouts and wire-level retries.
type Transport interface {
	// FetchExperiments returns the definitions the remote service knows for ids.
	// Unknown ids are omitted from the result rather than reported as errors.
	FetchExperiments(ctx context.Context, ids ...string) ([]ExperimentDefinition, error)

	// FlushMetrics sends one batch. A well-formed rejection is reported as
	// (false, nil); only transport failures return an error.
	FlushMetrics(ctx context.Context, batch MetricBatch) (bool, error)

	// LookupSegment resolves the geo and device segment of a request.
	LookupSegment(ctx context.Context, req SegmentRequest) (Segment, error)
}

// MetricBatch is the payload of a single flush.
type MetricBatch struct {
	ID      string        `json:"batchID"`
	Entries []MetricEntry `json:"metrics"`
}
