package simpleab

import "fmt"

// Stage is a rollout phase of an experiment.
type Stage string

const (
	StageBeta       Stage = "Beta"
	StageProduction Stage = "Production"
)

// ParseStage converts a loose string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageBeta, StageProduction:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
}

func (s Stage) String() string { return string(s) }

// Treatment identifies a variant a user may be assigned to.
type Treatment string

// Sentinels. TreatmentNone is the outcome of resolution when the user is not
// bucketed into any variant.
const (
	TreatmentNone    Treatment = "None"
	TreatmentControl Treatment = "Control"
)

// Variant identifiers accepted by the remote service.
const (
	TreatmentT1 Treatment = "T1"
	TreatmentT2 Treatment = "T2"
	TreatmentT3 Treatment = "T3"
	TreatmentT4 Treatment = "T4"
	TreatmentT5 Treatment = "T5"
	TreatmentT6 Treatment = "T6"
	TreatmentT7 Treatment = "T7"
	TreatmentT8 Treatment = "T8"
	TreatmentT9 Treatment = "T9"
)

// ParseTreatment converts a loose string into a Treatment.
func ParseTreatment(s string) (Treatment, error) {
	switch t := Treatment(s); t {
	case TreatmentNone, TreatmentControl,
		TreatmentT1, TreatmentT2, TreatmentT3, TreatmentT4, TreatmentT5,
		TreatmentT6, TreatmentT7, TreatmentT8, TreatmentT9:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTreatment, s)
	}
}

// IsSentinel reports whether t is None or Control.
func (t Treatment) IsSentinel() bool {
	return t == TreatmentNone || t == TreatmentControl
}

func (t Treatment) String() string { return string(t) }

// AggregationType tells the remote service how to interpret an accumulated entry.
// Storage is the same for every kind: a running sum and a count.
type AggregationType string

const (
	AggregationSum     AggregationType = "sum"
	AggregationCount   AggregationType = "count"
	AggregationAverage AggregationType = "avg"
)

// ParseAggregationType converts a loose string into an AggregationType.
// An empty string selects AggregationSum.
func ParseAggregationType(s string) (AggregationType, error) {
	if s == "" {
		return AggregationSum, nil
	}
	switch a := AggregationType(s); a {
	case AggregationSum, AggregationCount, AggregationAverage:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidAggregationType, s)
	}
}

func (a AggregationType) String() string { return string(a) }
