package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesIssued counts verification codes generated and stored.
	CodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_verification_codes_issued_total",
			Help: "Total number of verification codes issued",
		},
	)

	// CodeChecks counts verification attempts by outcome
	// (verified|invalid_code|expired|not_found|too_many_attempts).
	CodeChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_verification_checks_total",
			Help: "Total number of verification code checks",
		},
		[]string{"result"},
	)

	// RateLimited counts code requests rejected by the limiter, by scope (ip|email).
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_verification_rate_limited_total",
			Help: "Total number of verification requests rejected by rate limiting",
		},
		[]string{"scope"},
	)

	// MailDeliveries counts transport calls by transport name and result (success|failure).
	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_mail_deliveries_total",
			Help: "Total number of outbound email deliveries",
		},
		[]string{"transport", "result"},
	)

	// PendingVerifications tracks live verification records.
	PendingVerifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_verification_pending",
			Help: "Number of verification codes awaiting confirmation",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
