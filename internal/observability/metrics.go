package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkup_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkup_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	postsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkup_posts_created_total",
			Help: "Total number of posts created.",
		},
	)
	repliesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkup_replies_submitted_total",
			Help: "Total number of post replies submitted.",
		},
	)
	quotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkup_quota_rejections_total",
			Help: "Total number of operations rejected by a post quota.",
		},
		[]string{"quota"},
	)
	matchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkup_matches_total",
			Help: "Total number of accepted replies turned into conversations.",
		},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkup_messages_sent_total",
			Help: "Total number of chat messages appended.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkup_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		postsCreatedTotal,
		repliesSubmittedTotal,
		quotaRejectionsTotal,
		matchesTotal,
		messagesSentTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncPostCreated() {
	postsCreatedTotal.Inc()
}

func IncReplySubmitted() {
	repliesSubmittedTotal.Inc()
}

func IncQuotaRejection(quota string) {
	quotaRejectionsTotal.WithLabelValues(quota).Inc()
}

func IncMatch() {
	matchesTotal.Inc()
}

func IncMessageSent() {
	messagesSentTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
