package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus instruments.
type Metrics struct {
	BillsGenerated     *prometheus.CounterVec
	PayoutsGenerated   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	PaymentsRecorded   prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		BillsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentroll_bills_generated_total",
			Help: "Bill generation outcomes partitioned by result.",
		}, []string{"result"}),
		PayoutsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentroll_payouts_generated_total",
			Help: "Owner payout generation outcomes partitioned by result.",
		}, []string{"result"}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentroll_generation_duration_seconds",
			Help:    "Wall time of a full bill generation run.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rentroll_payments_recorded_total",
			Help: "Payments accepted by the ledger.",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentroll_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentroll_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
