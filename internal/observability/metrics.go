// Package observability exposes the core's Prometheus metrics,
// grounded on testforge's internal/observability promauto pattern
// (spec.md §2.4 of SPEC_FULL.md). Every component takes a nil-safe
// *Metrics, mirroring the nil-safe *zap.Logger convention elsewhere in
// this module.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the core's Prometheus collectors.
type Metrics struct {
	DiscoverySessionsActive prometheus.Gauge
	DiscoveryPagesPerRun    prometheus.Histogram

	ExecutionReplayDuration *prometheus.HistogramVec
	ExecutionPagesCompleted prometheus.Histogram
	ExecutionOutcomesTotal  *prometheus.CounterVec

	PrimitiveOutcomesTotal *prometheus.CounterVec

	BrowserLaunchesTotal *prometheus.CounterVec
}

// NewMetrics registers and returns a Metrics instance under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wizard_automation"
	}

	return &Metrics{
		DiscoverySessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "discovery_sessions_active",
				Help:      "Number of live discovery sessions",
			},
		),
		DiscoveryPagesPerRun: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "discovery_pages_per_run",
				Help:      "Number of pages discovered per completed discovery session",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		ExecutionReplayDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_replay_duration_seconds",
				Help:      "Wall-clock duration of a wizard replay",
				Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"wizard_id", "outcome"},
		),
		ExecutionPagesCompleted: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_pages_completed",
				Help:      "Number of pages completed per execution request",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		ExecutionOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "execution_outcomes_total",
				Help:      "Total execute_wizard calls by outcome",
			},
			[]string{"wizard_id", "outcome"},
		),
		PrimitiveOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "primitive_outcomes_total",
				Help:      "Total action primitive invocations by interaction and outcome",
			},
			[]string{"interaction", "outcome"},
		),
		BrowserLaunchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "browser_launches_total",
				Help:      "Total browser launch attempts by engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
	}
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDiscoveryComplete records a finished discovery session's page count.
func (m *Metrics) RecordDiscoveryComplete(pageCount int) {
	if m == nil {
		return
	}
	m.DiscoveryPagesPerRun.Observe(float64(pageCount))
}

// SessionOpened/SessionClosed track the discovery-session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.DiscoverySessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.DiscoverySessionsActive.Dec()
}

// RecordExecution records one execute_wizard call's outcome and duration.
func (m *Metrics) RecordExecution(wizardID, outcome string, duration time.Duration, pagesCompleted int) {
	if m == nil {
		return
	}
	m.ExecutionOutcomesTotal.WithLabelValues(wizardID, outcome).Inc()
	m.ExecutionReplayDuration.WithLabelValues(wizardID, outcome).Observe(duration.Seconds())
	if pagesCompleted > 0 {
		m.ExecutionPagesCompleted.Observe(float64(pagesCompleted))
	}
}

// RecordPrimitive records one action primitive's outcome.
func (m *Metrics) RecordPrimitive(interaction, outcome string) {
	if m == nil {
		return
	}
	m.PrimitiveOutcomesTotal.WithLabelValues(interaction, outcome).Inc()
}

// RecordBrowserLaunch records one browser launch attempt's outcome.
func (m *Metrics) RecordBrowserLaunch(engine, outcome string) {
	if m == nil {
		return
	}
	m.BrowserLaunchesTotal.WithLabelValues(engine, outcome).Inc()
}
