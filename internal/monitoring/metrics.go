package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Provider metrics
	ProviderLatency  *prometheus.HistogramVec
	ProviderRequests *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec

	// Tool metrics
	ToolInvocations *prometheus.CounterVec

	// Knowledge store metrics
	KnowledgeWrites  *prometheus.CounterVec
	KnowledgeQueries *prometheus.CounterVec

	// Streaming metrics
	StreamChunksEmitted *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		ProviderLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_latency_seconds",
				Help:    "Model provider response latency in seconds",
				Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "model"},
		),
		ProviderRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Total number of requests to model providers",
			},
			[]string{"provider", "model", "status"},
		),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_errors_total",
				Help: "Total number of errors from model providers",
			},
			[]string{"provider", "model", "error_type"},
		),

		ToolInvocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_invocations_total",
				Help: "Total number of agent tool invocations",
			},
			[]string{"tool", "status"},
		),

		KnowledgeWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knowledge_writes_total",
				Help: "Total number of knowledge store writes",
			},
			[]string{"driver", "status"},
		),
		KnowledgeQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knowledge_queries_total",
				Help: "Total number of knowledge store similarity queries",
			},
			[]string{"driver", "status"},
		),

		StreamChunksEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_chunks_emitted_total",
				Help: "Total number of chunks written to response streams",
			},
			[]string{"path"},
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_hits_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"path"},
		),
	}

	return metrics
}

// Get returns the initialized metrics, initializing them if needed
func Get() *Metrics {
	return Init()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records HTTP metrics for every request
func MetricsMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveProviderCall records latency and outcome of one provider round trip
func ObserveProviderCall(provider, model string, start time.Time, err error) {
	m := Get()
	m.ProviderLatency.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
		m.ProviderErrors.WithLabelValues(provider, model, "request").Inc()
	}
	m.ProviderRequests.WithLabelValues(provider, model, status).Inc()
}
