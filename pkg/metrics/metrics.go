package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ArchiverMetrics holds all Prometheus metrics for the archiver worker.
type ArchiverMetrics struct {
	EventsReceived   prometheus.Counter
	EventsArchived   prometheus.Counter
	EventsFiltered   prometheus.Counter
	EventsFailed     prometheus.Counter
	StagedRecovered  prometheus.Counter
	StreamReconnects prometheus.Counter

	registry *prometheus.Registry
}

// New initializes and registers the archiver metrics on a fresh registry.
func New() *ArchiverMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ArchiverMetrics{
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "archiver",
			Name:      "events_received_total",
			Help:      "Total number of events delivered by the feed subscription.",
		}),
		EventsArchived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "archiver",
			Name:      "events_archived_total",
			Help:      "Total number of events staged, uploaded, and cleaned up.",
		}),
		EventsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "archiver",
			Name:      "events_filtered_total",
			Help:      "Total number of events discarded for lacking a geo signal.",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "archiver",
			Name:      "events_failed_total",
			Help:      "Total number of events that failed staging or upload.",
		}),
		StagedRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "archiver",
			Name:      "staged_recovered_total",
			Help:      "Total number of leftover staged files re-uploaded at startup.",
		}),
		StreamReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geostream",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of subscription reconnect attempts.",
		}),
		registry: reg,
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *ArchiverMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
