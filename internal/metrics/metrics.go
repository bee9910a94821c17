// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement outcomes.
const (
	OutcomeCredited  = "credited"
	OutcomeDuplicate = "duplicate"
	OutcomeUnpaid    = "unpaid"
	OutcomeError     = "error"
)

// Webhook results.
const (
	WebhookAccepted  = "accepted"
	WebhookForbidden = "forbidden"
	WebhookError     = "error"
)

var (
	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_settlements_total",
			Help: "Settlement attempts by rail and outcome",
		},
		[]string{"rail", "outcome"},
	)

	Withdrawals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_withdrawals_total",
			Help: "Withdrawal attempts by rail and status",
		},
		[]string{"rail", "status"},
	)

	Webhooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_webhooks_total",
			Help: "Gateway webhooks by rail and result",
		},
		[]string{"rail", "result"},
	)

	Reconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_reconciled_total",
			Help: "Pending transactions settled by the reconcile worker",
		},
		[]string{"rail"},
	)

	KafkaPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_kafka_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
