package stub

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/simpleab/pkg/segment"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

// Store is an in-memory simpleab.Transport. It is safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	experiments    map[string]simpleab.ExperimentDefinition
	segments       map[string]simpleab.Segment
	defaultSegment simpleab.Segment
	rejectFlush    bool

	batches []simpleab.MetricBatch
	seen    map[string]struct{}
	totals  map[string]simpleab.MetricEntry
	fetches int
}

var _ simpleab.Transport = (*Store)(nil)

// NewStore returns a Store serving defs.
func NewStore(defs ...simpleab.ExperimentDefinition) *Store {
	s := &Store{
		experiments: make(map[string]simpleab.ExperimentDefinition),
		segments:    make(map[string]simpleab.Segment),
		seen:        make(map[string]struct{}),
		totals:      make(map[string]simpleab.MetricEntry),
	}
	s.PutExperiments(defs...)
	return s
}

// PutExperiments adds or replaces experiment definitions.
func (s *Store) PutExperiments(defs ...simpleab.ExperimentDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range defs {
		s.experiments[def.ID] = def.Clone()
	}
}

// Experiments returns the stored definitions ordered by id.
func (s *Store) Experiments() []simpleab.ExperimentDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]simpleab.ExperimentDefinition, 0, len(s.experiments))
	for _, id := range slices.Sorted(maps.Keys(s.experiments)) {
		out = append(out, s.experiments[id].Clone())
	}
	return out
}

// Apply replaces experiments and segments with the fixture's. Recorded
// batches and totals are kept.
func (s *Store) Apply(f Fixture) {
	experiments := make(map[string]simpleab.ExperimentDefinition, len(f.Experiments))
	for _, def := range f.Experiments {
		experiments[def.ID] = def.Clone()
	}
	segments := make(map[string]simpleab.Segment, len(f.Segments))
	maps.Copy(segments, f.Segments)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments = experiments
	s.segments = segments
	s.defaultSegment = f.DefaultSegment
}

// PutSegment sets the segment returned for ip.
func (s *Store) PutSegment(ip string, seg simpleab.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[ip] = seg
}

// SetDefaultSegment sets the segment returned for unknown IPs.
func (s *Store) SetDefaultSegment(seg simpleab.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultSegment = seg
}

// RejectFlushes makes FlushMetrics answer (false, nil) while reject is true.
func (s *Store) RejectFlushes(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectFlush = reject
}

// FetchExperiments returns the known definitions among ids. Unknown ids are skipped.
func (s *Store) FetchExperiments(_ context.Context, ids ...string) ([]simpleab.ExperimentDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	var out []simpleab.ExperimentDefinition
	for _, id := range ids {
		if def, ok := s.experiments[id]; ok {
			out = append(out, def.Clone())
		}
	}
	return out, nil
}

// FlushMetrics records batch and merges it into the running totals.
//
// A batch whose id was already accepted is acknowledged again without being
// counted, so a retried POST whose first response was lost does not double the
// totals. Batches without an id are always counted.
func (s *Store) FlushMetrics(_ context.Context, batch simpleab.MetricBatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectFlush {
		return false, nil
	}
	if batch.ID != "" {
		if _, dup := s.seen[batch.ID]; dup {
			return true, nil
		}
		s.seen[batch.ID] = struct{}{}
	}

	batch.Entries = slices.Clone(batch.Entries)
	s.batches = append(s.batches, batch)
	for _, e := range batch.Entries {
		key := e.String()
		total := s.totals[key]
		total.MetricKey = e.MetricKey
		total.Sum += e.Sum
		total.Count += e.Count
		s.totals[key] = total
	}
	return true, nil
}

// LookupSegment returns the segment registered for req.IP, or the default
// segment. A missing device type is derived from the User-Agent.
func (s *Store) LookupSegment(_ context.Context, req simpleab.SegmentRequest) (simpleab.Segment, error) {
	s.mu.RLock()
	seg, ok := s.segments[req.IP]
	if !ok {
		seg = s.defaultSegment
	}
	s.mu.RUnlock()

	if seg.DeviceType == "" {
		seg.DeviceType = segment.DeviceType(req.UserAgent)
	}
	return seg, nil
}

// Batches returns the accepted batches in arrival order.
func (s *Store) Batches() []simpleab.MetricBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.batches)
}

// Totals returns the accumulated entries of all accepted batches keyed by
// composite metric key.
func (s *Store) Totals() map[string]simpleab.MetricEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.totals)
}

// Fetches returns how many FetchExperiments calls were served.
func (s *Store) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}
