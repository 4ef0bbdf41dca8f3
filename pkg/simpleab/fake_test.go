package simpleab_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

// fakeTransport records calls and returns canned responses.
type fakeTransport struct {
	mu sync.Mutex

	experiments map[string]simpleab.ExperimentDefinition
	fetchErr    error
	fetchCalls  int
	// fetchGate, when set, holds every fetch until it is closed or the
	// fetch context ends. fetchStarted receives once per fetch.
	fetchGate    chan struct{}
	fetchStarted chan struct{}
	fetchedIDs  [][]string

	flushAccept bool
	flushErr    error
	flushCalls  int
	batches     []simpleab.MetricBatch

	segment     simpleab.Segment
	segmentErr  error
	segmentReqs []simpleab.SegmentRequest
}

func newFakeTransport(defs ...simpleab.ExperimentDefinition) *fakeTransport {
	f := &fakeTransport{
		experiments: make(map[string]simpleab.ExperimentDefinition),
		flushAccept: true,
	}
	for _, d := range defs {
		f.experiments[d.ID] = d
	}
	return f
}

func (f *fakeTransport) FetchExperiments(ctx context.Context, ids ...string) ([]simpleab.ExperimentDefinition, error) {
	f.mu.Lock()
	gate, started := f.fetchGate, f.fetchStarted
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.fetchedIDs = append(f.fetchedIDs, ids)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []simpleab.ExperimentDefinition
	for _, id := range ids {
		if d, ok := f.experiments[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeTransport) FlushMetrics(_ context.Context, batch simpleab.MetricBatch) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCalls++
	f.batches = append(f.batches, batch)
	if f.flushErr != nil {
		return false, f.flushErr
	}
	return f.flushAccept, nil
}

func (f *fakeTransport) LookupSegment(_ context.Context, req simpleab.SegmentRequest) (simpleab.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segmentReqs = append(f.segmentReqs, req)
	return f.segment, f.segmentErr
}

func (f *fakeTransport) calls() (fetch, flush int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.flushCalls
}

func (f *fakeTransport) setFlush(accept bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushAccept = accept
	f.flushErr = err
}

// exp1 mirrors the fixture used across client tests: Beta/default split 50/50
// between Control and T1, declaring T1 as a treatment.
func exp1() simpleab.ExperimentDefinition {
	exposure := 100.0
	return simpleab.ExperimentDefinition{
		ID:                           "exp1",
		AllocationRandomizationToken: "alloc_token",
		ExposureRandomizationToken:   "expo_token",
		Stages: []simpleab.StageConfig{{
			Stage: simpleab.StageBeta,
			StageDimensions: []simpleab.DimensionConfig{
				{
					Dimension: "default",
					Enabled:   true,
					Exposure:  &exposure,
					TreatmentAllocations: []simpleab.Allocation{
						{ID: simpleab.TreatmentControl, Allocation: 50},
						{ID: simpleab.TreatmentT1, Allocation: 50},
					},
				},
				{
					Dimension: "US-mobile",
					Enabled:   true,
					TreatmentAllocations: []simpleab.Allocation{
						{ID: simpleab.TreatmentT1, Allocation: 100},
					},
				},
			},
		}},
		Treatments: []simpleab.TreatmentRef{{ID: simpleab.TreatmentT1}},
	}
}
