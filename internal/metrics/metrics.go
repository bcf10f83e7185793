// Package metrics provides Prometheus metrics for the map gallery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSyncs              = "gallery_marker_syncs_total"
	MetricSyncsSkipped       = "gallery_marker_syncs_skipped_total"
	MetricSyncDuration       = "gallery_marker_sync_duration_seconds"
	MetricMarkersRendered    = "gallery_markers_rendered_total"
	MetricMarkerErrors       = "gallery_marker_errors_total"
	MetricCoversMissing      = "gallery_covers_missing_total"
	MetricTriggersSuperseded = "gallery_viewport_triggers_superseded_total"
	MetricSessionsActive     = "gallery_sessions_active"
)

// Metrics contains Prometheus metrics for marker rendering and sessions.
// All methods are safe on a nil receiver so components can run without
// metrics in tests.
type Metrics struct {
	syncs              prometheus.Counter
	syncsSkipped       prometheus.Counter
	syncDuration       prometheus.Histogram
	markersRendered    prometheus.Counter
	markerErrors       prometheus.Counter
	coversMissing      prometheus.Counter
	triggersSuperseded prometheus.Counter
	sessionsActive     prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSyncs,
			Help: "Total number of marker layer synchronisations",
		}),
		syncsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSyncsSkipped,
			Help: "Total number of synchronisations skipped because the map was not ready",
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSyncDuration,
			Help:    "Histogram of marker layer synchronisation time in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		markersRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMarkersRendered,
			Help: "Total number of marker descriptors built",
		}),
		markerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMarkerErrors,
			Help: "Total number of markers skipped because they failed to build",
		}),
		coversMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCoversMissing,
			Help: "Total number of markers rendered with the missing-cover placeholder",
		}),
		triggersSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricTriggersSuperseded,
			Help: "Total number of debounced viewport updates replaced by a later one",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSessionsActive,
			Help: "Number of open map sessions",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.syncs,
		m.syncsSkipped,
		m.syncDuration,
		m.markersRendered,
		m.markerErrors,
		m.coversMissing,
		m.triggersSuperseded,
		m.sessionsActive,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSync records one completed synchronisation.
func (m *Metrics) ObserveSync(rendered int, d time.Duration) {
	if m == nil {
		return
	}
	m.syncs.Inc()
	m.markersRendered.Add(float64(rendered))
	m.syncDuration.Observe(d.Seconds())
}

// IncSyncSkipped increments the skipped synchronisation counter.
func (m *Metrics) IncSyncSkipped() {
	if m == nil {
		return
	}
	m.syncsSkipped.Inc()
}

// IncMarkerErrors increments the marker build error counter.
func (m *Metrics) IncMarkerErrors() {
	if m == nil {
		return
	}
	m.markerErrors.Inc()
}

// IncCoversMissing increments the missing cover counter.
func (m *Metrics) IncCoversMissing() {
	if m == nil {
		return
	}
	m.coversMissing.Inc()
}

// IncTriggersSuperseded increments the superseded trigger counter.
func (m *Metrics) IncTriggersSuperseded() {
	if m == nil {
		return
	}
	m.triggersSuperseded.Inc()
}

// SessionOpened increments the active sessions gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
