package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState tracks the transport circuit breaker per channel
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_channel_breaker_state",
			Help: "Current state of the channel transport circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"channel"},
	)

	// PushEndpointsDeactivated counts subscriptions retired after the push
	// gateway reported them permanently gone.
	PushEndpointsDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_endpoints_deactivated_total",
			Help: "Total number of push subscriptions deactivated after a permanent gateway failure",
		},
	)

	// PushEndpointSends counts per-endpoint push attempts by outcome.
	PushEndpointSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_endpoint_sends_total",
			Help: "Total number of per-endpoint push delivery attempts",
		},
		[]string{"outcome"},
	)
)
