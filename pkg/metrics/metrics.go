package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WebhookEvents counts inbound identity events by provider event type and
	// terminal outcome (applied|acknowledged|rejected|failed).
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cineverse", Name: "webhook_events_total", Help: "Number of inbound identity webhook events by type and outcome."},
		[]string{"type", "outcome"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cineverse", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cineverse", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(WebhookEvents)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
