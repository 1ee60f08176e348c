// Package metric exposes Prometheus instrumentation for the parsing
// pipeline: captures processed, entities extracted, diagnostics by
// kind, and run duration.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techsift/techsift/entity"
)

// Bundle holds the pipeline metrics together with their registry.
type Bundle struct {
	registry *prometheus.Registry

	CapturesProcessed *prometheus.CounterVec
	EntitiesExtracted *prometheus.CounterVec
	DiagnosticsTotal  *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
}

// NewBundle creates and registers the pipeline metrics on a private
// registry, including the Go runtime collectors.
func NewBundle() *Bundle {
	b := &Bundle{
		registry: prometheus.NewRegistry(),

		CapturesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "techsift",
				Subsystem: "pipeline",
				Name:      "captures_processed_total",
				Help:      "Total captures processed, by identified platform",
			},
			[]string{"platform"},
		),

		EntitiesExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "techsift",
				Subsystem: "pipeline",
				Name:      "entities_extracted_total",
				Help:      "Total canonical entities produced, by platform",
			},
			[]string{"platform"},
		),

		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "techsift",
				Subsystem: "pipeline",
				Name:      "diagnostics_total",
				Help:      "Total diagnostics recorded, by kind",
			},
			[]string{"kind"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "techsift",
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "End-to-end processing duration per capture",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"platform"},
		),
	}

	b.registry.MustRegister(
		b.CapturesProcessed,
		b.EntitiesExtracted,
		b.DiagnosticsTotal,
		b.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return b
}

// ObserveRun records the outcome of one pipeline run.
func (b *Bundle) ObserveRun(platform string, entities int, diags []entity.Diagnostic, d time.Duration) {
	b.CapturesProcessed.WithLabelValues(platform).Inc()
	b.EntitiesExtracted.WithLabelValues(platform).Add(float64(entities))
	for _, diag := range diags {
		b.DiagnosticsTotal.WithLabelValues(string(diag.Kind)).Inc()
	}
	b.RunDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving this bundle's registry.
func (b *Bundle) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})
}
