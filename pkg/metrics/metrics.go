package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tracking metrics
	TrackingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "releva_tracking_requests_total",
			Help: "Total number of tracking requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	TrackingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "releva_tracking_request_duration_seconds",
			Help:    "Tracking request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TrackingSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "releva_tracking_skipped_total",
			Help: "Tracking calls skipped because tracking is disabled",
		},
	)

	// Engagement metrics
	EngagementPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "releva_engagement_pending",
			Help: "Number of engagement callbacks waiting for delivery",
		},
	)

	EngagementDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "releva_engagement_deliveries_total",
			Help: "Engagement callback delivery attempts by result",
		},
		[]string{"result"},
	)

	EngagementFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "releva_engagement_flush_duration_seconds",
			Help:    "Time taken by one engagement flush pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Session metrics
	SessionRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "releva_session_rotations_total",
			Help: "Total number of session ids minted",
		},
	)
)

func init() {
	prometheus.MustRegister(TrackingRequestsTotal)
	prometheus.MustRegister(TrackingRequestDuration)
	prometheus.MustRegister(TrackingSkippedTotal)
	prometheus.MustRegister(EngagementPending)
	prometheus.MustRegister(EngagementDeliveriesTotal)
	prometheus.MustRegister(EngagementFlushDuration)
	prometheus.MustRegister(SessionRotationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
