package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	hookDuration  *prom.HistogramVec
	hookResults   *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	fileResults   *prom.CounterVec
	jobsInFlight  prom.Gauge
	workers       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.hookDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "katsite",
			Name:      "hook_duration_seconds",
			Help:      "Duration of individual plugin hook invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"hook", "plugin"})
		pr.hookResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "katsite",
			Name:      "hook_results_total",
			Help:      "Plugin hook invocation results",
		}, []string{"hook", "plugin", "result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "katsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "katsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.fileResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "katsite",
			Name:      "files_total",
			Help:      "Source files processed by result",
		}, []string{"result"})
		pr.jobsInFlight = prom.NewGauge(prom.GaugeOpts{
			Namespace: "katsite",
			Name:      "jobs_in_flight",
			Help:      "Build jobs currently running",
		})
		pr.workers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "katsite",
			Name:      "workers",
			Help:      "Configured worker pool size",
		})
		reg.MustRegister(pr.hookDuration, pr.hookResults, pr.buildDuration, pr.buildOutcome, pr.fileResults, pr.jobsInFlight, pr.workers)
	})
	return pr
}

// Registry returns the registry the recorder's collectors are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveHookDuration(hook, plugin string, d time.Duration) {
	if p == nil || p.hookDuration == nil {
		return
	}
	p.hookDuration.WithLabelValues(hook, plugin).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHookResult(hook, plugin string, result ResultLabel) {
	if p == nil || p.hookResults == nil {
		return
	}
	p.hookResults.WithLabelValues(hook, plugin, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFileResult(result ResultLabel) {
	if p == nil || p.fileResults == nil {
		return
	}
	p.fileResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddJobsInFlight(delta int) {
	if p == nil || p.jobsInFlight == nil {
		return
	}
	p.jobsInFlight.Add(float64(delta))
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil || p.workers == nil {
		return
	}
	p.workers.Set(float64(n))
}
