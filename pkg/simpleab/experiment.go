package simpleab

import "slices"

// ExperimentDefinition is the remote configuration of one experiment.
type ExperimentDefinition struct {
	ID                           string         `json:"id" yaml:"id"`
	AllocationRandomizationToken string         `json:"allocationRandomizationToken,omitempty" yaml:"allocationRandomizationToken,omitempty"`
	ExposureRandomizationToken   string         `json:"exposureRandomizationToken,omitempty" yaml:"exposureRandomizationToken,omitempty"`
	Stages                       []StageConfig  `json:"stages,omitempty" yaml:"stages,omitempty"`
	Treatments                   []TreatmentRef `json:"treatments,omitempty" yaml:"treatments,omitempty"`
}

// StageConfig holds the dimensions configured for one stage.
type StageConfig struct {
	Stage           Stage             `json:"stage" yaml:"stage"`
	StageDimensions []DimensionConfig `json:"stageDimensions,omitempty" yaml:"stageDimensions,omitempty"`
}

// DimensionConfig carries exposure and allocation rules for a sub-segment of a stage.
type DimensionConfig struct {
	Dimension string `json:"dimension" yaml:"dimension"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	// Exposure is the percentage (0-100) of users bucketed into a real treatment.
	// Nil behaves as 100.
	Exposure             *float64     `json:"exposure,omitempty" yaml:"exposure,omitempty"`
	TreatmentAllocations []Allocation `json:"treatmentAllocations,omitempty" yaml:"treatmentAllocations,omitempty"`
}

// Allocation assigns a percentage of exposed users to a treatment.
// Allocations are evaluated in declared order.
type Allocation struct {
	ID         Treatment `json:"id" yaml:"id"`
	Allocation float64   `json:"allocation" yaml:"allocation"`
}

// TreatmentRef is a treatment declared by an experiment.
type TreatmentRef struct {
	ID Treatment `json:"id" yaml:"id"`
}

// ExposurePercent returns the effective exposure of the dimension.
func (d DimensionConfig) ExposurePercent() float64 {
	if d.Exposure == nil {
		return 100
	}
	return *d.Exposure
}

// Stage returns the configuration of the given stage.
func (e *ExperimentDefinition) Stage(stage Stage) (StageConfig, bool) {
	for _, s := range e.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageConfig{}, false
}

// Dimension returns the configuration of the given dimension.
func (s StageConfig) Dimension(dimension string) (DimensionConfig, bool) {
	for _, d := range s.StageDimensions {
		if d.Dimension == dimension {
			return d, true
		}
	}
	return DimensionConfig{}, false
}

// DeclaresTreatment reports whether t is in the experiment's treatments list.
func (e *ExperimentDefinition) DeclaresTreatment(t Treatment) bool {
	return slices.ContainsFunc(e.Treatments, func(ref TreatmentRef) bool {
		return ref.ID == t
	})
}

// Clone returns a deep copy so cached definitions cannot be mutated by callers.
func (e ExperimentDefinition) Clone() ExperimentDefinition {
	out := e
	out.Treatments = slices.Clone(e.Treatments)
	if e.Stages != nil {
		out.Stages = make([]StageConfig, len(e.Stages))
		for i, s := range e.Stages {
			out.Stages[i] = s
			if s.StageDimensions == nil {
				continue
			}
			out.Stages[i].StageDimensions = make([]DimensionConfig, len(s.StageDimensions))
			for j, d := range s.StageDimensions {
				dc := d
				if d.Exposure != nil {
					exposure := *d.Exposure
					dc.Exposure = &exposure
				}
				dc.TreatmentAllocations = slices.Clone(d.TreatmentAllocations)
				out.Stages[i].StageDimensions[j] = dc
			}
		}
	}
	return out
}

// Segment describes where a user is and what device they use.
// It is an immutable value.
type Segment struct {
	CountryCode string `json:"countryCode" yaml:"countryCode"`
	Region      string `json:"region" yaml:"region"`
	DeviceType  string `json:"deviceType" yaml:"deviceType"`
}

// NewSegment builds a Segment.
func NewSegment(countryCode, region, deviceType string) Segment {
	return Segment{CountryCode: countryCode, Region: region, DeviceType: deviceType}
}

// Dimension derives the dimension key "{countryCode}-{deviceType}".
func (s Segment) Dimension() string {
	return s.CountryCode + "-" + s.DeviceType
}

// SegmentRequest is the input of a remote segment lookup.
type SegmentRequest struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}
