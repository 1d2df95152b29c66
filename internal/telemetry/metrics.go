// Package telemetry registers the service's Prometheus collectors.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// EventsAccepted counts admitted live events by kind.
	EventsAccepted *prometheus.CounterVec
	// EventsRejected counts refused submissions by kind and reason.
	EventsRejected *prometheus.CounterVec
	// SweepDeletions counts rows removed by retention sweeps, by store.
	SweepDeletions *prometheus.CounterVec
	// AnalyticsDropped counts analytics writes that were logged and discarded.
	AnalyticsDropped prometheus.Counter
	// ActiveViewers tracks the last observed presence count per channel.
	ActiveViewers *prometheus.GaugeVec
	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests *prometheus.CounterVec
)

// Init registers the collectors (idempotent).
func Init() {
	once.Do(func() {
		EventsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oroma_live_events_accepted_total",
			Help: "Live events admitted and persisted",
		}, []string{"kind"})
		EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oroma_live_events_rejected_total",
			Help: "Live event submissions refused at the admission gate",
		}, []string{"kind", "reason"})
		SweepDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oroma_sweep_deletions_total",
			Help: "Rows removed by retention and staleness sweeps",
		}, []string{"store"})
		AnalyticsDropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "oroma_analytics_dropped_total",
			Help: "Analytics records discarded after a persistence failure",
		})
		ActiveViewers = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oroma_active_viewers",
			Help: "Presence count per channel as of the last read",
		}, []string{"channel"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oroma_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"})
	})
}

// CountAccepted is a nil-safe accepted-event increment.
func CountAccepted(kind string) {
	if EventsAccepted != nil {
		EventsAccepted.WithLabelValues(kind).Inc()
	}
}

// CountRejected is a nil-safe rejected-event increment.
func CountRejected(kind, reason string) {
	if EventsRejected != nil {
		EventsRejected.WithLabelValues(kind, reason).Inc()
	}
}

// CountSwept is a nil-safe sweep-deletion increment.
func CountSwept(store string, rows int64) {
	if SweepDeletions != nil && rows > 0 {
		SweepDeletions.WithLabelValues(store).Add(float64(rows))
	}
}

// CountAnalyticsDropped is a nil-safe dropped-analytics increment.
func CountAnalyticsDropped() {
	if AnalyticsDropped != nil {
		AnalyticsDropped.Inc()
	}
}

// CountHTTPRequest is a nil-safe served-request increment.
func CountHTTPRequest(method, route, status string) {
	if HTTPRequests != nil {
		HTTPRequests.WithLabelValues(method, route, status).Inc()
	}
}

// SetActiveViewers records the latest presence count for a channel.
func SetActiveViewers(channel string, count int64) {
	if ActiveViewers != nil {
		ActiveViewers.WithLabelValues(channel).Set(float64(count))
	}
}
