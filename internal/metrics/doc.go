// Package metrics provides the observability hooks for collection jobs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	q := queue.New(processor, queue.Options{Recorder: metrics.NoopRecorder{}})
//
// The daemon swaps in a PrometheusRecorder registered on its own registry
// and serves it through HTTPHandler when metrics are enabled.
package metrics
