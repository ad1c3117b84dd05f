// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_checkins_total",
		Help: "Student check-ins by result (ok, duplicate, error).",
	}, []string{"result"})

	ScheduleConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_schedule_conflicts_total",
		Help: "Slot creations or updates rejected for overlapping an existing slot.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_notifications_total",
		Help: "Notifications by stage (published, stored, failed).",
	}, []string{"stage"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
