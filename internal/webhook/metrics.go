package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_requests_total",
		Help: "Webhook deliveries received, by event type.",
	}, []string{"event_type"})
	responseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_responses_total",
		Help: "Responses sent to webhook deliveries, by status code.",
	}, []string{"code"})
	actionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_actions_total",
		Help: "Router decisions for verified deliveries.",
	}, []string{"action"})
	signatureFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Deliveries whose signature did not verify.",
	})
)

// Metrics is a set of metrics gathered by the event server.
type Metrics struct {
	WebhookCounter          *prometheus.CounterVec
	ResponseCounter         *prometheus.CounterVec
	ActionCounter           *prometheus.CounterVec
	SignatureFailureCounter prometheus.Counter
}

// NewMetrics returns the process-wide webhook collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		WebhookCounter:          webhookCounter,
		ResponseCounter:         responseCounter,
		ActionCounter:           actionCounter,
		SignatureFailureCounter: signatureFailureCounter,
	}
}
