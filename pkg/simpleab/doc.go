// Package simpleab is a client-side experimentation (A/B testing) SDK.
//
// The client resolves which treatment a user falls into for an experiment,
// stage and dimension, and records metric observations against that assignment
// until they are flushed to the remote service in one batch.
//
// # Architecture
//
// The package is built around four pieces:
//
//  1. ExperimentCache - in-memory map of experiment id to the last fetched
//     definition. Populated lazily, never expired, last write wins.
//  2. Resolve - a pure function computing the treatment from a definition.
//  3. MetricBuffer - keyed accumulation of observations with drain/restore
//     semantics for flushing.
//  4. Transport - the remote collaborator (see pkg/transport for the HTTP one).
//
// # Usage
//
//	import (
//		"github.com/dmitrymomot/simpleab/pkg/simpleab"
//		"github.com/dmitrymomot/simpleab/pkg/transport"
//	)
//
//	tr, err := transport.New(simpleab.Config{
//		APIURL: "https://api.example.com",
//		APIKey: apiKey,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	client := simpleab.New(tr, simpleab.WithLogger(log))
//	defer client.Close(context.Background())
//
//	treatment, err := client.GetTreatment(ctx, "exp1", simpleab.StageBeta, "default", userID)
//	if err != nil {
//		// invalid stage, unknown experiment or transport failure
//	}
//	if treatment == simpleab.TreatmentT1 {
//		// render variant
//	}
//
//	err = client.TrackMetric(ctx, simpleab.Metric{
//		ExperimentID: "exp1",
//		Stage:        simpleab.StageBeta,
//		Dimension:    "default",
//		Treatment:    treatment,
//		MetricName:   "clicks",
//		MetricValue:  1,
//	})
//
// # Bucketing
//
// Assignment is stateless and deterministic. Two buckets in [0, 100) are
// derived with 32-bit FNV-1a over token+userID modulo 100: the exposure bucket
// (salted with exposureRandomizationToken) decides whether the user takes part,
// and the allocation bucket (salted with allocationRandomizationToken) walks
// treatmentAllocations in declared order. A disabled dimension, an excluded user
// or an allocation remainder yields TreatmentNone.
//
// # Metrics
//
// Observations are keyed by experiment, stage, dimension, treatment, metric name
// and aggregation type. Every kind stores a running sum and count so sum, count
// and average can be reported by the service. FlushMetrics clears the buffer
// only when the service accepts the batch; otherwise the drained entries are
// merged back for a later attempt. Run flushes periodically.
//
// # Error Handling
//
// Validation failures (ErrInvalidStage, ErrInvalidTreatment,
// ErrInvalidAggregationType, ErrNegativeMetric, ErrInvalidMetricValue) are
// returned before the cache, the buffer or the network are touched.
// ErrNotFound reports an experiment the service does not know. Transport
// errors are returned unchanged and wrap ErrTransport when produced by
// pkg/transport.
//
//	if errors.Is(err, simpleab.ErrNotFound) {
//		// experiment not configured
//	}
//
// # Concurrency
//
// Client, ExperimentCache and MetricBuffer are safe for concurrent use.
// Concurrent cache misses for the same experiment share one fetch; flushes are
// serialized and never block TrackMetric while waiting on the network.
package simpleab
