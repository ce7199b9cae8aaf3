package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	// CheckoutTotal counts checkout attempts by payment method and outcome.
	CheckoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by payment method and result",
		},
		[]string{"payment_method", "result"},
	)

	// SettlementTotal counts settlement attempts by trigger and outcome.
	SettlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_settlement_total",
			Help: "Payment settlement attempts by source and result",
		},
		[]string{"source", "result"},
	)

	// GatewayCallDuration observes outbound payment gateway calls.
	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_ms",
			Help:    "Duration of payment gateway calls in ms",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"provider", "operation"},
	)
)

// MetricsMiddleware records request counts and latencies per route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := float64(time.Since(start).Milliseconds())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// ObserveGatewayCall records how long a gateway operation took.
func ObserveGatewayCall(provider, operation string, start time.Time) {
	GatewayCallDuration.WithLabelValues(provider, operation).Observe(float64(time.Since(start).Milliseconds()))
}

// Result maps an error to a metrics label.
func Result(err error) string {
	if err == nil {
		return "success"
	}
	if appErr := GetAppError(err); appErr != nil {
		if appErr.Code < http.StatusInternalServerError {
			return "rejected"
		}
	}
	return "error"
}
