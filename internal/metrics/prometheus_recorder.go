package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	processorDuration *prom.HistogramVec
	buildDuration     prom.Histogram
	processorResults  *prom.CounterVec
	buildOutcome      *prom.CounterVec
	cacheHits         prom.Counter
	cacheMisses       prom.Counter
	workers           prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.processorDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "seedbloom",
			Name:      "processor_duration_seconds",
			Help:      "Duration of individual processor runs",
			Buckets:   prom.DefBuckets,
		}, []string{"processor"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "seedbloom",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.processorResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "seedbloom",
			Name:      "processor_results_total",
			Help:      "Processor result counts by outcome",
		}, []string{"processor", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "seedbloom",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.cacheHits = prom.NewCounter(prom.CounterOpts{
			Namespace: "seedbloom",
			Name:      "cache_hits_total",
			Help:      "Processor results satisfied from the result store",
		})
		pr.cacheMisses = prom.NewCounter(prom.CounterOpts{
			Namespace: "seedbloom",
			Name:      "cache_misses_total",
			Help:      "Processor runs not satisfied from the result store",
		})
		pr.workers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "seedbloom",
			Name:      "workers",
			Help:      "Configured orchestrator worker limit",
		})

		reg.MustRegister(
			pr.processorDuration, pr.buildDuration, pr.processorResults,
			pr.buildOutcome, pr.cacheHits, pr.cacheMisses, pr.workers,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveProcessorDuration(name string, d time.Duration) {
	p.processorDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncProcessorResult(name string, result ResultLabel) {
	p.processorResults.WithLabelValues(name, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncCacheHit()  { p.cacheHits.Inc() }
func (p *PrometheusRecorder) IncCacheMiss() { p.cacheMisses.Inc() }

func (p *PrometheusRecorder) SetWorkers(n int) { p.workers.Set(float64(n)) }
