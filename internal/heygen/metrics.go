package heygen

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	heygenRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_heygen_requests_total",
		Help: "HeyGen streaming API calls by operation and status",
	}, []string{"op", "status"})

	heygenLatencyMS = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kiosk_heygen_latency_ms",
		Help:    "HeyGen streaming API latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(20, 1.6, 12),
	}, []string{"op"})
)
