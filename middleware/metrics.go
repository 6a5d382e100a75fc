package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	cartLinesAddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_lines_added_total",
			Help: "Total number of lines added to the cart",
		},
	)

	ordersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Total number of submitted orders",
		},
		[]string{"payment_method"},
	)

	craftRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "craft_requests_total",
			Help: "Total number of submitted craft requests",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(cartLinesAddedTotal)
	prometheus.MustRegister(ordersSubmittedTotal)
	prometheus.MustRegister(craftRequestsTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordLineAdded() {
	cartLinesAddedTotal.Inc()
}

func RecordOrderSubmitted(paymentMethod string) {
	ordersSubmittedTotal.WithLabelValues(paymentMethod).Inc()
}

func RecordCraftRequest() {
	craftRequestsTotal.Inc()
}
