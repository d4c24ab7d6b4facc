package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sends counts dispatch outcomes: delivered, failed, deferred (quiet
	// hours), aborted (preference policy), rejected (caller error).
	Sends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sends_total",
			Help: "Total number of notification sends by outcome",
		},
		[]string{"result"},
	)

	// Deliveries counts per-channel delivery outcomes.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_deliveries_total",
			Help: "Total number of per-channel delivery attempts by outcome",
		},
		[]string{"channel", "outcome"},
	)

	// DeliveryDuration observes per-channel adapter latency.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Duration of per-channel delivery attempts in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// DeferredQueueDepth tracks payloads waiting out quiet hours.
	DeferredQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_deferred_queue_depth",
			Help: "Number of quiet-hours deferred payloads awaiting delivery",
		},
	)

	// DeferredExpired counts deferred payloads that aged out before their
	// delivery window opened.
	DeferredExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_deferred_expired_total",
			Help: "Total number of deferred payloads that expired before delivery",
		},
	)
)
