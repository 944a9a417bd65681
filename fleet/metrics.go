package fleet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connected screen sessions currently admitted
	connectedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_connected_sessions",
			Help: "Number of screen sessions currently admitted",
		},
	)

	// Admission attempts rejected because the fleet was at capacity
	admissionRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_admission_rejected_total",
			Help: "Total connection attempts rejected at capacity",
		},
	)

	// Events delivered to at least the publish path, partitioned by type
	busEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_bus_events_published_total",
			Help: "Total events published on the broadcast bus",
		},
		[]string{"type"},
	)

	// Events dropped because a subscriber buffer was full
	busEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_bus_events_dropped_total",
			Help: "Total events dropped due to slow subscribers",
		},
		[]string{"type"},
	)

	// Campaign status transitions partitioned by target status
	campaignTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_campaign_transitions_total",
			Help: "Total campaign status transitions applied",
		},
		[]string{"to"},
	)

	// Campaigns currently in the active status
	activeCampaigns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_active_campaigns",
			Help: "Number of campaigns currently active",
		},
	)

	// Content resolutions computed, partitioned by cache outcome
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_resolutions_total",
			Help: "Total content resolutions served",
		},
		[]string{"outcome"},
	)

	// Background sweep durations partitioned by sweep name
	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_sweep_duration_seconds",
			Help:    "Background sweep latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)
)

// ObserveSweep records the duration of one background sweep run
func ObserveSweep(name string, seconds float64) {
	sweepDuration.WithLabelValues(name).Observe(seconds)
}
