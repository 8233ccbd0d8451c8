package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AffiliatesEnrolledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affiliates_enrolled_total",
			Help: "Total number of partner program enrollments",
		},
	)

	// Outcome is one of: created, duplicate, skipped, unknown_code, failed.
	CommissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_total",
			Help: "Commission accrual attempts by outcome",
		},
		[]string{"outcome"},
	)

	CommissionAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commission_amount_total",
			Help: "Sum of commission amounts accrued, in currency units",
		},
	)

	SignupBonusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signup_bonuses_total",
			Help: "Total number of first-login credit bonuses granted",
		},
	)
)
