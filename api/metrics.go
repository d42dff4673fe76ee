package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activities",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "activities",
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})
)
