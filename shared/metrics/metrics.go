package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Pipeline metrics
	ViewingTransitionsCounter prometheus.CounterVec
	GateDecisionsCounter      prometheus.CounterVec
	ApplicationOpsCounter     prometheus.CounterVec
	LeaseOpsCounter           prometheus.CounterVec
	SignatureConflictsCounter prometheus.Counter
	NotificationDropsCounter  prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with the given prefix
func InitMetrics(prefix string) {
	HTTPRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ViewingTransitionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_viewing_transitions_total",
			Help: "Total number of viewing state transitions",
		},
		[]string{"transition"},
	)

	GateDecisionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_gate_decisions_total",
			Help: "Total number of application access gate evaluations",
		},
		[]string{"reason"},
	)

	ApplicationOpsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_application_operations_total",
			Help: "Total number of application operations",
		},
		[]string{"operation"},
	)

	LeaseOpsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_lease_operations_total",
			Help: "Total number of lease operations",
		},
		[]string{"operation"},
	)

	SignatureConflictsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_signature_conflicts_total",
			Help: "Total number of concurrent-signature CAS conflicts",
		},
	)

	NotificationDropsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_notification_drops_total",
			Help: "Total number of notification events dropped or failed",
		},
	)
}

// RecordViewingTransition increments the counter for viewing transitions
func RecordViewingTransition(transition string) {
	ViewingTransitionsCounter.WithLabelValues(transition).Inc()
}

// RecordGateDecision increments the counter for gate evaluations
func RecordGateDecision(reason string) {
	GateDecisionsCounter.WithLabelValues(reason).Inc()
}

// RecordApplicationOp increments the counter for application operations
func RecordApplicationOp(operation string) {
	ApplicationOpsCounter.WithLabelValues(operation).Inc()
}

// RecordLeaseOp increments the counter for lease operations
func RecordLeaseOp(operation string) {
	LeaseOpsCounter.WithLabelValues(operation).Inc()
}

// Middleware tracks HTTP request counts and durations per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := c.FullPath()
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	}
}
