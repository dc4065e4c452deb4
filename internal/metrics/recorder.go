// Package metrics defines observability hooks for build and processor
// metrics and a Prometheus-backed implementation.
package metrics

import "time"

// ResultLabel enumerates processor result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCached   ResultLabel = "cached"
	ResultDisabled ResultLabel = "disabled"
)

// Recorder defines observability hooks for build and processor metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveProcessorDuration(name string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncProcessorResult(name string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|failed
	IncCacheHit()
	IncCacheMiss()
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveProcessorDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)            {}
func (NoopRecorder) IncProcessorResult(string, ResultLabel)        {}
func (NoopRecorder) IncBuildOutcome(string)                        {}
func (NoopRecorder) IncCacheHit()                                  {}
func (NoopRecorder) IncCacheMiss()                                 {}
func (NoopRecorder) SetWorkers(int)                                {}
