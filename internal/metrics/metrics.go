package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_registrations_total",
			Help: "Created users by source",
		},
		[]string{"source"}, // api | bot
	)

	ReferralCredits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_referral_credits_total",
		Help: "Referral bonuses credited to referrers",
	})

	Claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_claims_total",
			Help: "Reward claim attempts by outcome",
		},
		[]string{"outcome"}, // ok | cooldown
	)

	Withdrawals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_withdrawals_total",
			Help: "Withdrawal attempts by outcome",
		},
		[]string{"outcome"}, // ok | below_minimum | insufficient
	)
)
