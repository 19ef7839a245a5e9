// Package metrics records conversion outcomes for a node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so repeated conversions in one process
// (tests) never collide on registration.
type Recorder struct {
	reg *prometheus.Registry

	conversionsTotal *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	artifactBytes    prometheus.Gauge
}

// New registers the conversion collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		conversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "makellamafile",
				Name:      "conversions_total",
				Help:      "Conversions by result (success or the failure kind)",
			},
			[]string{"result"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "makellamafile",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
			},
			[]string{"stage"},
		),
		artifactBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "makellamafile",
				Name:      "artifact_bytes",
				Help:      "Size of the most recently built artifact",
			},
		),
	}
	r.reg.MustRegister(r.conversionsTotal, r.stageDuration, r.artifactBytes)
	return r
}

// ObserveStage records how long a named stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Conversion counts one finished conversion.
func (r *Recorder) Conversion(result string) {
	if result == "" {
		result = "unspecified"
	}
	r.conversionsTotal.WithLabelValues(result).Inc()
}

// ArtifactSize records the size in bytes of the built artifact.
func (r *Recorder) ArtifactSize(n int64) { r.artifactBytes.Set(float64(n)) }

// Registry exposes the underlying registry for inspection.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile atomically writes all collected metrics to path in the
// Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
