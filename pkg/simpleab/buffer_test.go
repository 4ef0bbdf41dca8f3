package simpleab_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

func clicksKey(agg simpleab.AggregationType) simpleab.MetricKey {
	return simpleab.MetricKey{
		ExperimentID:    "exp1",
		Stage:           simpleab.StageBeta,
		Dimension:       "default",
		Treatment:       simpleab.TreatmentT1,
		MetricName:      "clicks",
		AggregationType: agg,
	}
}

func TestMetricKey_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "exp1-Beta-default-T1-clicks-sum", clicksKey(simpleab.AggregationSum).String())
	assert.Equal(t, "exp1-Beta-default-T1-clicks-avg", clicksKey(simpleab.AggregationAverage).String())
}

func TestMetricBuffer_Accumulate(t *testing.T) {
	t.Parallel()

	b := simpleab.NewMetricBuffer()
	b.Accumulate(clicksKey(simpleab.AggregationSum), 2)
	b.Accumulate(clicksKey(simpleab.AggregationSum), 3.5)
	b.Accumulate(clicksKey(simpleab.AggregationCount), 1)

	snap := b.Snapshot()
	require.Len(t, snap, 2)

	sum := snap["exp1-Beta-default-T1-clicks-sum"]
	assert.Equal(t, 5.5, sum.Sum)
	assert.Equal(t, int64(2), sum.Count)
	assert.Equal(t, clicksKey(simpleab.AggregationSum), sum.MetricKey)

	count := snap["exp1-Beta-default-T1-clicks-count"]
	assert.Equal(t, 1.0, count.Sum)
	assert.Equal(t, int64(1), count.Count)
}

func TestMetricEntry_Value(t *testing.T) {
	t.Parallel()

	e := simpleab.MetricEntry{MetricKey: clicksKey(simpleab.AggregationSum), Sum: 9, Count: 3}
	assert.Equal(t, 9.0, e.Value())

	e.AggregationType = simpleab.AggregationCount
	assert.Equal(t, 3.0, e.Value())

	e.AggregationType = simpleab.AggregationAverage
	assert.Equal(t, 3.0, e.Value())

	assert.Zero(t, simpleab.MetricEntry{}.Average())
}

func TestMetricBuffer_DrainRestore(t *testing.T) {
	t.Parallel()

	b := simpleab.NewMetricBuffer()
	b.Accumulate(clicksKey(simpleab.AggregationSum), 1)

	drained := b.Drain()
	require.Len(t, drained, 1)
	assert.Zero(t, b.Len())

	// recorded while the drained batch is in flight
	b.Accumulate(clicksKey(simpleab.AggregationSum), 4)
	b.Restore(drained)

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 5.0, snap["exp1-Beta-default-T1-clicks-sum"].Sum)
	assert.Equal(t, int64(2), snap["exp1-Beta-default-T1-clicks-sum"].Count)

	b.Reset()
	assert.Zero(t, b.Len())
}

func TestMetricBuffer_DrainOrder(t *testing.T) {
	t.Parallel()

	b := simpleab.NewMetricBuffer()
	b.Accumulate(clicksKey(simpleab.AggregationSum), 1)
	b.Accumulate(clicksKey(simpleab.AggregationAverage), 1)
	b.Accumulate(clicksKey(simpleab.AggregationCount), 1)

	drained := b.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, simpleab.AggregationAverage, drained[0].AggregationType)
	assert.Equal(t, simpleab.AggregationCount, drained[1].AggregationType)
	assert.Equal(t, simpleab.AggregationSum, drained[2].AggregationType)
}

func TestMetricBuffer_Concurrent(t *testing.T) {
	t.Parallel()

	b := simpleab.NewMetricBuffer()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b.Accumulate(clicksKey(simpleab.AggregationSum), 1)
			}
		}()
	}
	wg.Wait()

	entry := b.Snapshot()["exp1-Beta-default-T1-clicks-sum"]
	assert.Equal(t, int64(5000), entry.Count)
	assert.Equal(t, 5000.0, entry.Sum)
}
