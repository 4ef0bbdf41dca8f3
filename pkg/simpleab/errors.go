package simpleab

import "errors"

// Domain errors for SDK operations. Detail is attached with fmt.Errorf("%w: ...")
// so callers classify failures with errors.Is.
//
// Validation errors (stage, treatment, aggregation type, negative metric) are
// returned before the cache, the buffer or the network are touched.
var (
	// ErrNotFound indicates the remote service returned no definition for the experiment id.
	ErrNotFound = errors.New("experiment not found")

	ErrInvalidStage           = errors.New("invalid stage string")
	ErrInvalidTreatment       = errors.New("invalid treatment string")
	ErrInvalidAggregationType = errors.New("invalid aggregation type")
	ErrNegativeMetric         = errors.New("metric cannot be negative")
	ErrInvalidMetricValue     = errors.New("invalid metric value")

	// ErrFlushRejected is returned by Close when the remote service refused the final batch.
	ErrFlushRejected = errors.New("metric flush rejected")

	// ErrTransport marks failures reported by the transport collaborator.
	// The client returns them unchanged.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidConfig indicates the client configuration failed validation.
	ErrInvalidConfig = errors.New("invalid simpleab configuration")
)

// IsValidationError reports whether err was caused by invalid trackMetric or
// getTreatment input rather than by the remote service.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidStage) ||
		errors.Is(err, ErrInvalidTreatment) ||
		errors.Is(err, ErrInvalidAggregationType) ||
		errors.Is(err, ErrNegativeMetric) ||
		errors.Is(err, ErrInvalidMetricValue)
}
