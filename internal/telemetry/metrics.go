// Package telemetry carries the observability surface of the covmark
// library: an optional zap trace logger and prometheus counters for suite
// runners that scrape long-lived test processes.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/covmark/covmark/internal/config"
	"github.com/covmark/covmark/internal/registry"
)

// Check outcomes recorded on ChecksTotal.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
	// OutcomeAbandoned is a guard torn down while its guarded block was
	// panicking; the expectation was never evaluated.
	OutcomeAbandoned = "abandoned"
)

var (
	metricsRegistry *prometheus.Registry

	// Hit calls observed per mark, cumulative across all goroutines.
	// Watch for: marks that never move — dead branches or dead tests.
	MarkHitsTotal *prometheus.CounterVec

	// Check guards closed, by outcome. Watch for: fail rate per run.
	ChecksTotal *prometheus.CounterVec
)

func init() {
	metricsRegistry = prometheus.NewRegistry()

	MarkHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covmarkHitsTotal",
			Help: "Coverage-mark hit calls observed, per mark",
		},
		[]string{"mark"},
	)
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covmarkChecksTotal",
			Help: "Check guards closed, by outcome (pass, fail, abandoned)",
		},
		[]string{"outcome"},
	)

	metricsRegistry.MustRegister(
		MarkHitsTotal, ChecksTotal,
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "covmarkGuardsOpen",
				Help: "Check guards currently open across all goroutines",
			},
			func() float64 { return float64(registry.OpenGuards()) },
		),
	)
}

// CountHit records a hit on MarkHitsTotal when metrics are enabled.
func CountHit(mark string) {
	if config.Get().MetricsEnabled {
		MarkHitsTotal.WithLabelValues(mark).Inc()
	}
}

// CountCheck records a closed guard outcome when metrics are enabled.
func CountCheck(outcome string) {
	if config.Get().MetricsEnabled {
		ChecksTotal.WithLabelValues(outcome).Inc()
	}
}

// MetricsHandler returns an http.Handler serving the covmark metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})
}
