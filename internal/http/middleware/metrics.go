// Package middleware contains the Gin middleware shared by the forum's HTTP
// layer.
//
// This file exposes Prometheus instrumentation. Metrics() records the HTTP
// RED metrics labelled by method, registered route and status; requests that
// matched no route share the "unmatched" path label so profile and room
// UUIDs never become label values. ObserveForumAction counts the forum's
// own outcomes (logins, posts, deletions) from the handlers.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)

	forumActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "actions_total",
			Help:      "Forum actions by kind and outcome.",
		},
		[]string{"action", "outcome"},
	)
)

// Forum action labels.
const (
	ActionLogin         = "login"
	ActionRegister      = "register"
	ActionRoomCreate    = "room_create"
	ActionRoomUpdate    = "room_update"
	ActionRoomDelete    = "room_delete"
	ActionMessagePost   = "message_post"
	ActionMessageDelete = "message_delete"
	ActionProfileUpdate = "profile_update"

	OutcomeOK        = "ok"
	OutcomeReplayed  = "replayed"
	OutcomeInvalid   = "invalid"
	OutcomeDenied    = "denied"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	unmatchedPathTag = "unmatched"
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, forumActions)
}

// ObserveForumAction increments forum_actions_total{action, outcome}.
func ObserveForumAction(action, outcome string) {
	forumActions.WithLabelValues(action, outcome).Inc()
}

// Metrics returns the Prometheus HTTP middleware. Serve the registry with
// r.GET("/metrics", gin.WrapH(promhttp.Handler())).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPathTag
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
