package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepy_webhook_notifications_total",
		Help: "Sheepy notifications handled, by outcome.",
	}, []string{"outcome"})

	InvoiceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepy_invoice_requests_total",
		Help: "Outbound invoice creation calls, by outcome.",
	}, []string{"outcome"})

	InvoiceRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheepy_invoice_request_duration_seconds",
		Help:    "Latency of outbound invoice creation calls.",
		Buckets: prometheus.DefBuckets,
	})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepy_order_transitions_total",
		Help: "Effective order state transitions applied from notifications.",
	}, []string{"state"})
)
