package simpleab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dmitrymomot/simpleab/pkg/logger"
)

// Metric is a single observation passed to TrackMetric.
type Metric struct {
	ExperimentID string
	Stage        Stage
	Dimension    string
	Treatment    Treatment
	MetricName   string
	MetricValue  float64
	// AggregationType defaults to AggregationSum when empty.
	AggregationType AggregationType
}

// SegmentMetric is a Metric whose dimension is derived from a Segment.
type SegmentMetric struct {
	ExperimentID    string
	Stage           Stage
	Segment         Segment
	Treatment       Treatment
	MetricName      string
	MetricValue     float64
	AggregationType AggregationType
}

// Metric converts m into a Metric with the segment's dimension.
func (m SegmentMetric) Metric() Metric {
	return Metric{
		ExperimentID:    m.ExperimentID,
		Stage:           m.Stage,
		Dimension:       m.Segment.Dimension(),
		Treatment:       m.Treatment,
		MetricName:      m.MetricName,
		MetricValue:     m.MetricValue,
		AggregationType: m.AggregationType,
	}
}

// key validates the loose fields of m and builds its buffer key.
// Order: stage, treatment, aggregation type, value.
func (m Metric) key() (MetricKey, error) {
	stage, err := ParseStage(string(m.Stage))
	if err != nil {
		return MetricKey{}, err
	}
	treatment, err := ParseTreatment(string(m.Treatment))
	if err != nil {
		return MetricKey{}, err
	}
	aggregation, err := ParseAggregationType(string(m.AggregationType))
	if err != nil {
		return MetricKey{}, err
	}
	if math.IsNaN(m.MetricValue) || math.IsInf(m.MetricValue, 0) {
		return MetricKey{}, fmt.Errorf("%w: metric %s must be a finite number", ErrInvalidMetricValue, m.MetricName)
	}
	if aggregation == AggregationSum && m.MetricValue < 0 {
		return MetricKey{}, fmt.Errorf("%w: %s for sum aggregation", ErrNegativeMetric, m.MetricName)
	}
	return MetricKey{
		ExperimentID:    m.ExperimentID,
		Stage:           stage,
		Dimension:       m.Dimension,
		Treatment:       treatment,
		MetricName:      m.MetricName,
		AggregationType: aggregation,
	}, nil
}

// Client resolves treatments and records metrics for experiments defined in the
// remote service. It is safe for concurrent use.
type Client struct {
	transport Transport
	cache     *ExperimentCache
	buffer    *MetricBuffer

	// flushMu serializes flushes; accumulation never waits on it.
	flushMu sync.Mutex

	logger     *slog.Logger
	metrics    *Metrics
	newBatchID func() string
	seed       []ExperimentDefinition
}

// New creates a Client that talks to the remote service through t.
func New(t Transport, opts ...Option) *Client {
	if t == nil {
		panic("simpleab: nil transport")
	}
	c := &Client{
		transport:  t,
		cache:      NewExperimentCache(t),
		buffer:     NewMetricBuffer(),
		logger:     defaultLogger(),
		newBatchID: defaultBatchID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache.metrics = c.metrics
	c.cache.Put(c.seed...)
	c.seed = nil
	c.logger = c.logger.With(logger.Component("simpleab"))
	return c
}

// GetTreatment returns the treatment userID is assigned to.
//
// An unknown stage fails with ErrInvalidStage and an unknown experiment with
// ErrNotFound. A missing stage or dimension, a disabled dimension, exposure
// exclusion and an allocation remainder all return TreatmentNone without error.
func (c *Client) GetTreatment(ctx context.Context, experimentID string, stage Stage, dimension, userID string) (Treatment, error) {
	st, err := ParseStage(string(stage))
	if err != nil {
		return TreatmentNone, err
	}

	def, err := c.cache.GetOrFetch(ctx, experimentID)
	if err != nil {
		c.logger.DebugContext(ctx, "experiment lookup failed",
			logger.ExperimentID(experimentID),
			logger.Error(err),
		)
		return TreatmentNone, err
	}

	treatment := Resolve(&def, st, dimension, userID)
	c.metrics.assignment(experimentID, treatment)
	c.logger.DebugContext(ctx, "treatment resolved",
		logger.ExperimentID(experimentID),
		logger.Stage(string(st)),
		logger.Dimension(dimension),
		logger.Treatment(string(treatment)),
	)
	return treatment, nil
}

// GetTreatmentWithSegment resolves the treatment for the dimension derived from seg.
func (c *Client) GetTreatmentWithSegment(ctx context.Context, experimentID string, stage Stage, seg Segment, userID string) (Treatment, error) {
	return c.GetTreatment(ctx, experimentID, stage, seg.Dimension(), userID)
}

// TrackMetric validates m and accumulates it into the metric buffer.
//
// Input validation happens before any network call or mutation. The experiment
// definition is then fetched if not cached; when it declares treatments, a
// non-sentinel treatment must be among them.
func (c *Client) TrackMetric(ctx context.Context, m Metric) error {
	key, err := m.key()
	c.metrics.tracked(err)
	if err != nil {
		return err
	}

	def, err := c.cache.GetOrFetch(ctx, m.ExperimentID)
	if err != nil {
		return err
	}
	if len(def.Treatments) > 0 && !key.Treatment.IsSentinel() && !def.DeclaresTreatment(key.Treatment) {
		return fmt.Errorf("%w: %q is not declared by experiment %s", ErrInvalidTreatment, key.Treatment, def.ID)
	}

	c.buffer.Accumulate(key, m.MetricValue)
	c.metrics.buffered(c.buffer.Len())
	return nil
}

// TrackMetricWithSegment tracks m under the dimension derived from its segment.
func (c *Client) TrackMetricWithSegment(ctx context.Context, m SegmentMetric) error {
	return c.TrackMetric(ctx, m.Metric())
}

// FlushMetrics sends the whole buffer to the remote service in one batch.
//
// It returns true when the service accepted the batch, and the buffer no longer
// holds it. A rejection returns (false, nil); a transport failure returns the
// transport error. In both cases the drained entries are merged back so nothing
// is lost. An empty buffer returns (true, nil) without a network call.
func (c *Client) FlushMetrics(ctx context.Context) (bool, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	entries := c.buffer.Drain()
	if len(entries) == 0 {
		return true, nil
	}

	batch := MetricBatch{ID: c.newBatchID(), Entries: entries}
	start := time.Now()
	ok, err := c.transport.FlushMetrics(ctx, batch)
	if err != nil || !ok {
		c.buffer.Restore(entries)
		c.metrics.buffered(c.buffer.Len())

		outcome := "rejected"
		if err != nil {
			outcome = "error"
		}
		c.metrics.flush(outcome)
		c.logger.WarnContext(ctx, "metric flush failed",
			logger.Group("batch", logger.BatchID(batch.ID), logger.Count(len(entries))),
			slog.String("outcome", outcome),
			logger.Error(err),
		)
		return false, err
	}

	c.metrics.flush("success")
	c.metrics.buffered(c.buffer.Len())
	c.logger.DebugContext(ctx, "metrics flushed",
		logger.Group("batch", logger.BatchID(batch.ID), logger.Count(len(entries))),
		logger.Duration(time.Since(start)),
	)
	return true, nil
}

// GetSegment resolves the segment of a request through the remote service.
// Errors from the transport are returned unchanged.
func (c *Client) GetSegment(ctx context.Context, req SegmentRequest) (Segment, error) {
	return c.transport.LookupSegment(ctx, req)
}

// Prefetch loads the given experiments into the cache with a single remote call.
func (c *Client) Prefetch(ctx context.Context, ids ...string) error {
	return c.cache.Refresh(ctx, ids...)
}

// GetCache returns a copy of the cached experiment definitions keyed by id.
func (c *Client) GetCache() map[string]ExperimentDefinition {
	return c.cache.Snapshot()
}

// GetBuffer returns a copy of the metric buffer keyed by composite key.
func (c *Client) GetBuffer() map[string]MetricEntry {
	return c.buffer.Snapshot()
}

// Run flushes the buffer every interval until ctx is done.
// Failed flushes keep their data and are retried on the next tick.
// Run does not flush on exit; call Close for that.
func (c *Client) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: flush interval must be positive", ErrInvalidConfig)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.FlushMetrics(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.ErrorContext(ctx, "periodic flush failed", logger.Error(err))
			}
		}
	}
}

// Close flushes whatever is buffered. A rejected final flush is reported as
// ErrFlushRejected so shutdown code can tell data was left behind.
func (c *Client) Close(ctx context.Context) error {
	ok, err := c.FlushMetrics(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFlushRejected
	}
	return nil
}
