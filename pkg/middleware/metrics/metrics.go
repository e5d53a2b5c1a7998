package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinicorder"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Allocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_allocations_total",
		Help:      "Order allocation attempts by result code.",
	}, []string{"result"})

	AllocationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_allocation_retries_total",
		Help:      "Allocation transactions retried after a lock or serialization conflict.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status transitions by target status.",
	}, []string{"to"})

	CalendarCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calendar_cache_total",
		Help:      "Calendar cache lookups by outcome.",
	}, []string{"outcome"})

	MailJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_jobs_total",
		Help:      "Mail jobs by stage and result.",
	}, []string{"stage", "result"})

	ReactorsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_reactors_total",
		Help:      "Reactors whose cycles the archive sweep marked expired.",
	})

	OnlineClinics = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_online_sessions",
		Help:      "Open notification websocket sessions.",
	})
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		HTTPLatency.WithLabelValues(ctx.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
