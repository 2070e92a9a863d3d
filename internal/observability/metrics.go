package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters exported by the service.
type Metrics struct {
	ExportsTotal          *prometheus.CounterVec
	PrunedFilesTotal      prometheus.Counter
	GenerationAttempts    *prometheus.CounterVec
	NormalizationFailures prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_exports_total",
				Help: "Product exports by backend and result",
			},
			[]string{"backend", "result"},
		),
		PrunedFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kiosk_pruned_files_total",
				Help: "Stale product files removed after a library export",
			},
		),
		GenerationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_generation_attempts_total",
				Help: "Calls to the text completion service by outcome",
			},
			[]string{"outcome"},
		),
		NormalizationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kiosk_image_normalization_failures_total",
				Help: "Images passed through unchanged because normalization failed",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(m.ExportsTotal, m.PrunedFilesTotal, m.GenerationAttempts, m.NormalizationFailures)
	return m
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
