package simpleab

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// MetricKey is the 6-tuple an observation is accumulated under.
type MetricKey struct {
	ExperimentID    string          `json:"experimentID"`
	Stage           Stage           `json:"stage"`
	Dimension       string          `json:"dimension"`
	Treatment       Treatment       `json:"treatment"`
	MetricName      string          `json:"metricName"`
	AggregationType AggregationType `json:"aggregationType"`
}

// String returns the composite key
// "{experimentID}-{stage}-{dimension}-{treatment}-{metricName}-{aggregationType}".
func (k MetricKey) String() string {
	return strings.Join([]string{
		k.ExperimentID,
		string(k.Stage),
		k.Dimension,
		string(k.Treatment),
		k.MetricName,
		string(k.AggregationType),
	}, "-")
}

// MetricEntry is an accumulated observation. Both aggregation kinds store a sum
// and a count so sum, count and average can be reported at flush time.
type MetricEntry struct {
	MetricKey
	Sum   float64 `json:"sum"`
	Count int64   `json:"count"`
}

// Average returns Sum/Count, or 0 for an empty entry.
func (e MetricEntry) Average() float64 {
	if e.Count == 0 {
		return 0
	}
	return e.Sum / float64(e.Count)
}

// Value returns the figure the entry represents for its aggregation type.
func (e MetricEntry) Value() float64 {
	switch e.AggregationType {
	case AggregationCount:
		return float64(e.Count)
	case AggregationAverage:
		return e.Average()
	default:
		return e.Sum
	}
}

// MetricBuffer accumulates observations in memory until they are flushed.
// It is safe for concurrent use.
type MetricBuffer struct {
	mu      sync.Mutex
	entries map[string]*MetricEntry
}

// NewMetricBuffer creates an empty buffer.
func NewMetricBuffer() *MetricBuffer {
	return &MetricBuffer{entries: make(map[string]*MetricEntry)}
}

// Accumulate adds value to the entry for key, creating it when absent.
// Count always grows by one and Sum by value, whatever the aggregation type.
func (b *MetricBuffer) Accumulate(key MetricKey, value float64) {
	k := key.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[k]
	if !ok {
		entry = &MetricEntry{MetricKey: key}
		b.entries[k] = entry
	}
	entry.Sum += value
	entry.Count++
}

// Len returns the number of distinct keys in the buffer.
func (b *MetricBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Snapshot returns a copy of the buffer keyed by composite key.
func (b *MetricBuffer) Snapshot() map[string]MetricEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]MetricEntry, len(b.entries))
	for k, e := range b.entries {
		out[k] = *e
	}
	return out
}

// Drain swaps the buffer contents for an empty map and returns what was held.
// Observations recorded after Drain land in the fresh map.
func (b *MetricBuffer) Drain() []MetricEntry {
	b.mu.Lock()
	drained := b.entries
	b.entries = make(map[string]*MetricEntry, len(drained))
	b.mu.Unlock()

	out := make([]MetricEntry, 0, len(drained))
	for _, k := range slices.Sorted(maps.Keys(drained)) {
		out = append(out, *drained[k])
	}
	return out
}

// Restore merges entries returned by Drain back into the buffer, adding them
// to anything recorded since.
func (b *MetricBuffer) Restore(entries []MetricEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range entries {
		k := e.MetricKey.String()
		cur, ok := b.entries[k]
		if !ok {
			restored := e
			b.entries[k] = &restored
			continue
		}
		cur.Sum += e.Sum
		cur.Count += e.Count
	}
}

// Reset discards every buffered entry.
func (b *MetricBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
}
