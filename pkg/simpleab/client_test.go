package simpleab_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/simpleab/pkg/logger"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

func clicks(value float64) simpleab.Metric {
	return simpleab.Metric{
		ExperimentID: "exp1",
		Stage:        simpleab.StageBeta,
		Dimension:    "default",
		Treatment:    simpleab.TreatmentT1,
		MetricName:   "clicks",
		MetricValue:  value,
	}
}

func TestNew_NilTransportPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { simpleab.New(nil) })
}

func TestClient_GetTreatment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves and caches", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		client := simpleab.New(ft)

		tr, err := client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user123")
		require.NoError(t, err)
		assert.Equal(t, simpleab.TreatmentControl, tr)

		tr, err = client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user2")
		require.NoError(t, err)
		assert.Equal(t, simpleab.TreatmentT1, tr)

		fetches, _ := ft.calls()
		assert.Equal(t, 1, fetches)

		cache := client.GetCache()
		require.Contains(t, cache, "exp1")
		assert.Equal(t, exp1(), cache["exp1"])
	})

	t.Run("invalid stage", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		client := simpleab.New(ft)

		tr, err := client.GetTreatment(ctx, "exp1", simpleab.Stage("InvalidStage"), "default", "user123")
		require.ErrorIs(t, err, simpleab.ErrInvalidStage)
		assert.Equal(t, simpleab.TreatmentNone, tr)

		fetches, _ := ft.calls()
		assert.Zero(t, fetches)
	})

	t.Run("stage not configured yields none", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))
		tr, err := client.GetTreatment(ctx, "exp1", simpleab.StageProduction, "default", "user123")
		require.NoError(t, err)
		assert.Equal(t, simpleab.TreatmentNone, tr)
	})

	t.Run("unknown experiment", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport())
		_, err := client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user123")
		require.ErrorIs(t, err, simpleab.ErrNotFound)
	})

	t.Run("with segment", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))
		seg := simpleab.NewSegment("US", "CA", "mobile")

		tr, err := client.GetTreatmentWithSegment(ctx, "exp1", simpleab.StageBeta, seg, "user123")
		require.NoError(t, err)
		assert.Equal(t, simpleab.TreatmentT1, tr)
	})

	t.Run("seeded experiments skip the network", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport()
		client := simpleab.New(ft, simpleab.WithExperiments(exp1()))

		_, err := client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user123")
		require.NoError(t, err)
		fetches, _ := ft.calls()
		assert.Zero(t, fetches)
	})
}

func TestClient_TrackMetric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("accumulates", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		client := simpleab.New(ft)

		require.NoError(t, client.TrackMetric(ctx, clicks(1)))
		require.NoError(t, client.TrackMetric(ctx, clicks(2)))

		buf := client.GetBuffer()
		require.Contains(t, buf, "exp1-Beta-default-T1-clicks-sum")
		entry := buf["exp1-Beta-default-T1-clicks-sum"]
		assert.Equal(t, 3.0, entry.Sum)
		assert.Equal(t, int64(2), entry.Count)

		fetches, flushes := ft.calls()
		assert.Equal(t, 1, fetches)
		assert.Zero(t, flushes)
	})

	t.Run("aggregation types keep separate entries", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))

		m := clicks(4)
		m.AggregationType = simpleab.AggregationAverage
		require.NoError(t, client.TrackMetric(ctx, m))
		m.AggregationType = simpleab.AggregationCount
		require.NoError(t, client.TrackMetric(ctx, m))

		buf := client.GetBuffer()
		assert.Len(t, buf, 2)
		assert.Contains(t, buf, "exp1-Beta-default-T1-clicks-avg")
		assert.Contains(t, buf, "exp1-Beta-default-T1-clicks-count")
	})

	t.Run("negative values allowed outside sum", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))
		m := clicks(-3)
		m.AggregationType = simpleab.AggregationAverage
		require.NoError(t, client.TrackMetric(ctx, m))
	})

	t.Run("sentinel treatments always accepted", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))
		m := clicks(1)
		m.Treatment = simpleab.TreatmentControl
		require.NoError(t, client.TrackMetric(ctx, m))
		m.Treatment = simpleab.TreatmentNone
		require.NoError(t, client.TrackMetric(ctx, m))
	})

	t.Run("undeclared treatment", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport(exp1()))
		m := clicks(1)
		m.Treatment = simpleab.TreatmentT2
		err := client.TrackMetric(ctx, m)
		require.ErrorIs(t, err, simpleab.ErrInvalidTreatment)
		assert.Empty(t, client.GetBuffer())
	})

	t.Run("experiment without declared treatments accepts any variant", func(t *testing.T) {
		t.Parallel()
		def := exp1()
		def.Treatments = nil
		client := simpleab.New(newFakeTransport(def))
		m := clicks(1)
		m.Treatment = simpleab.TreatmentT2
		require.NoError(t, client.TrackMetric(ctx, m))
	})

	t.Run("unknown experiment", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport())
		require.ErrorIs(t, client.TrackMetric(ctx, clicks(1)), simpleab.ErrNotFound)
		assert.Empty(t, client.GetBuffer())
	})
}

func TestClient_TrackMetric_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(m *simpleab.Metric)
		wantErr error
		wantMsg string
	}{
		{
			name:    "invalid stage",
			mutate:  func(m *simpleab.Metric) { m.Stage = "InvalidStage" },
			wantErr: simpleab.ErrInvalidStage,
			wantMsg: "invalid stage string",
		},
		{
			name:    "invalid treatment",
			mutate:  func(m *simpleab.Metric) { m.Treatment = "InvalidTreatment" },
			wantErr: simpleab.ErrInvalidTreatment,
			wantMsg: "invalid treatment string",
		},
		{
			name:    "invalid aggregation type",
			mutate:  func(m *simpleab.Metric) { m.AggregationType = "invalid" },
			wantErr: simpleab.ErrInvalidAggregationType,
			wantMsg: "invalid aggregation type: invalid",
		},
		{
			name: "negative sum",
			mutate: func(m *simpleab.Metric) {
				m.MetricValue = -1
				m.AggregationType = simpleab.AggregationSum
			},
			wantErr: simpleab.ErrNegativeMetric,
			wantMsg: "metric cannot be negative: clicks for sum aggregation",
		},
		{
			name:    "negative with default aggregation",
			mutate:  func(m *simpleab.Metric) { m.MetricValue = -1 },
			wantErr: simpleab.ErrNegativeMetric,
			wantMsg: "cannot be negative",
		},
		{
			name:    "not a number",
			mutate:  func(m *simpleab.Metric) { m.MetricValue = math.NaN() },
			wantErr: simpleab.ErrInvalidMetricValue,
			wantMsg: "finite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ft := newFakeTransport(exp1())
			client := simpleab.New(ft)

			m := clicks(1)
			tt.mutate(&m)
			err := client.TrackMetric(context.Background(), m)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, simpleab.IsValidationError(err))
			assert.Empty(t, client.GetBuffer())
			assert.Empty(t, client.GetCache())

			fetches, flushes := ft.calls()
			assert.Zero(t, fetches, "validation must not touch the network")
			assert.Zero(t, flushes)
		})
	}
}

func TestClient_TrackMetricWithSegment(t *testing.T) {
	t.Parallel()

	client := simpleab.New(newFakeTransport(exp1()))
	err := client.TrackMetricWithSegment(context.Background(), simpleab.SegmentMetric{
		ExperimentID:    "exp1",
		Stage:           simpleab.StageBeta,
		Segment:         simpleab.NewSegment("US", "CA", "mobile"),
		Treatment:       simpleab.TreatmentT1,
		MetricName:      "clicks",
		MetricValue:     1,
		AggregationType: simpleab.AggregationSum,
	})
	require.NoError(t, err)

	buf := client.GetBuffer()
	require.Contains(t, buf, "exp1-Beta-US-mobile-T1-clicks-sum")
	assert.Equal(t, "US-mobile", buf["exp1-Beta-US-mobile-T1-clicks-sum"].Dimension)
}

func TestClient_FlushMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("clears on success", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		client := simpleab.New(ft, simpleab.WithBatchIDGenerator(func() string { return "batch-1" }))

		require.NoError(t, client.TrackMetric(ctx, clicks(1)))
		ok, err := client.FlushMetrics(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, client.GetBuffer())

		fetches, flushes := ft.calls()
		assert.Equal(t, 1, fetches)
		assert.Equal(t, 1, flushes)

		require.Len(t, ft.batches, 1)
		batch := ft.batches[0]
		assert.Equal(t, "batch-1", batch.ID)
		require.Len(t, batch.Entries, 1)
		assert.Equal(t, "clicks", batch.Entries[0].MetricName)
		assert.Equal(t, simpleab.AggregationSum, batch.Entries[0].AggregationType)
		assert.Equal(t, 1.0, batch.Entries[0].Sum)
		assert.Equal(t, int64(1), batch.Entries[0].Count)
	})

	t.Run("keeps entries on rejection", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		ft.setFlush(false, nil)
		client := simpleab.New(ft)

		require.NoError(t, client.TrackMetric(ctx, clicks(2)))
		before := client.GetBuffer()

		ok, err := client.FlushMetrics(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, client.GetBuffer())
	})

	t.Run("keeps entries on transport error", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		transportErr := errors.Join(simpleab.ErrTransport, errors.New("timeout"))
		ft.setFlush(false, transportErr)
		client := simpleab.New(ft)

		require.NoError(t, client.TrackMetric(ctx, clicks(2)))
		before := client.GetBuffer()

		ok, err := client.FlushMetrics(ctx)
		require.ErrorIs(t, err, simpleab.ErrTransport)
		assert.False(t, ok)
		assert.Equal(t, before, client.GetBuffer())

		// retry succeeds and sends the preserved entry
		ft.setFlush(true, nil)
		ok, err = client.FlushMetrics(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, client.GetBuffer())
		require.Len(t, ft.batches, 2)
		assert.Equal(t, ft.batches[0].Entries, ft.batches[1].Entries)
	})

	t.Run("empty buffer skips the network", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport()
		client := simpleab.New(ft)

		ok, err := client.FlushMetrics(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		_, flushes := ft.calls()
		assert.Zero(t, flushes)
	})
}

func TestClient_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ft := newFakeTransport(exp1())
	ft.setFlush(false, nil)
	client := simpleab.New(ft)
	require.NoError(t, client.TrackMetric(ctx, clicks(1)))

	require.ErrorIs(t, client.Close(ctx), simpleab.ErrFlushRejected)
	assert.Len(t, client.GetBuffer(), 1)

	ft.setFlush(true, nil)
	require.NoError(t, client.Close(ctx))
	assert.Empty(t, client.GetBuffer())
}

func TestClient_Run(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive interval", func(t *testing.T) {
		t.Parallel()
		client := simpleab.New(newFakeTransport())
		require.ErrorIs(t, client.Run(context.Background(), 0), simpleab.ErrInvalidConfig)
	})

	t.Run("flushes periodically", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport(exp1())
		client := simpleab.New(ft)
		require.NoError(t, client.TrackMetric(context.Background(), clicks(1)))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- client.Run(ctx, 10*time.Millisecond) }()

		require.Eventually(t, func() bool {
			_, flushes := ft.calls()
			return flushes >= 1
		}, time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.Empty(t, client.GetBuffer())
	})
}

func TestClient_GetSegment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ft := newFakeTransport()
	ft.segment = simpleab.NewSegment("US", "CA", "mobile")
	client := simpleab.New(ft)

	seg, err := client.GetSegment(ctx, simpleab.SegmentRequest{IP: "1.2.3.4", UserAgent: "Test User Agent"})
	require.NoError(t, err)
	assert.Equal(t, "US", seg.CountryCode)
	assert.Equal(t, "CA", seg.Region)
	assert.Equal(t, "mobile", seg.DeviceType)
	require.Len(t, ft.segmentReqs, 1)
	assert.Equal(t, "1.2.3.4", ft.segmentReqs[0].IP)

	lookupErr := errors.New("geo lookup unavailable")
	ft.segmentErr = lookupErr
	_, err = client.GetSegment(ctx, simpleab.SegmentRequest{IP: "1.2.3.4"})
	assert.Equal(t, lookupErr, err)
}

func TestClient_Prefetch(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport(exp1())
	client := simpleab.New(ft)
	require.NoError(t, client.Prefetch(context.Background(), "exp1", "exp2"))

	assert.Contains(t, client.GetCache(), "exp1")
	require.Len(t, ft.fetchedIDs, 1)
	assert.Equal(t, []string{"exp1", "exp2"}, ft.fetchedIDs[0])
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	m := simpleab.NewMetrics(reg)
	ft := newFakeTransport(exp1())
	client := simpleab.New(ft, simpleab.WithMetrics(m))

	_, err := client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user2")
	require.NoError(t, err)
	_, err = client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", "user2")
	require.NoError(t, err)
	require.NoError(t, client.TrackMetric(ctx, clicks(1)))
	require.Error(t, client.TrackMetric(ctx, clicks(-1)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Assignments.WithLabelValues("exp1", "T1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrackedEvents.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BufferedKeys))

	ok, err := client.FlushMetrics(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("success")))
	assert.Zero(t, testutil.ToFloat64(m.BufferedKeys))
}

func TestClient_FlushMetrics_LogsBatchGroup(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	log := logger.New(logger.WithOutput(&out), logger.WithFormat(logger.FormatJSON), logger.WithLevel(slog.LevelDebug))

	ft := newFakeTransport(exp1())
	client := simpleab.New(ft,
		simpleab.WithLogger(log),
		simpleab.WithBatchIDGenerator(func() string { return "batch-1" }),
	)
	require.NoError(t, client.TrackMetric(context.Background(), clicks(1)))

	ok, err := client.FlushMetrics(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	var record struct {
		Msg   string `json:"msg"`
		Batch struct {
			BatchID string `json:"batch_id"`
			Count   int    `json:"count"`
		} `json:"batch"`
	}
	var found bool
	for line := range bytes.Lines(out.Bytes()) {
		require.NoError(t, json.Unmarshal(line, &record))
		if record.Msg == "metrics flushed" {
			found = true
			break
		}
	}
	require.True(t, found, "flush record not logged: %s", out.String())
	assert.Equal(t, "batch-1", record.Batch.BatchID)
	assert.Equal(t, 1, record.Batch.Count)
}
