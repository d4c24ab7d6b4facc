// Package channel holds the per-channel delivery adapters. Each adapter
// turns a resolved payload into one transport-level delivery attempt; the
// dispatcher fans a payload out across adapters and aggregates the outcomes.
package channel

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

// Default per-call transport timeouts. Every adapter bounds its own send so a
// slow transport cannot hold up the other channels of the same payload.
const (
	defaultPushTimeout  = 10 * time.Second
	defaultSMSTimeout   = 5 * time.Second
	defaultEmailTimeout = 10 * time.Second
	defaultInAppTimeout = 5 * time.Second
)

// Adapter delivers a payload over one channel. A returned error is that
// channel's failure outcome; it never aborts delivery on sibling channels.
type Adapter interface {
	Name() string
	Send(ctx context.Context, payload *domain.Payload) error
}

// newTransportBreaker builds the circuit breaker wrapped around an external
// transport (SNS, SES). Failure ratio and thresholds follow the breaker used
// for inter-service HTTP calls; state changes are logged and exported on the
// per-channel gauge.
func newTransportBreaker(channel string, logger *slog.Logger) *gobreaker.CircuitBreaker[string] {
	settings := gobreaker.Settings{
		Name:        channel,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("channel transport breaker state change",
				slog.String("channel", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	}

	cb := gobreaker.NewCircuitBreaker[string](settings)
	BreakerState.WithLabelValues(channel).Set(breakerStateValue(gobreaker.StateClosed))
	return cb
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
