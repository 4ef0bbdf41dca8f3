package transport

import (
	"bytes"
	"encoding/json"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

// Endpoints of the experimentation service, relative to the API base URL.
const (
	PathExperiments = "/experiments/evaluation"
	PathMetrics     = "/metrics/track/batch"
	PathSegment     = "/geolocation/segment"
)

// HeaderAPIKey carries the API key on every request.
const HeaderAPIKey = "X-API-Key"

// FetchRequest is the body of a PathExperiments call.
type FetchRequest struct {
	ExperimentIDs []string `json:"experimentIDs"`
}

// FetchResponse is the body returned by PathExperiments. Success holds the
// definitions, or a falsy value when the service found nothing.
type FetchResponse struct {
	Success json.RawMessage `json:"success"`
}

// Definitions decodes Success. A missing, null or false value yields no definitions.
func (r FetchResponse) Definitions() ([]simpleab.ExperimentDefinition, error) {
	raw := bytes.TrimSpace(r.Success)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}
	var defs []simpleab.ExperimentDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// FlushResponse is the body returned by PathMetrics.
type FlushResponse struct {
	Success bool `json:"success"`
}
