package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records outbound calls to the storefront gateway.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of gateway requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Gateway responses by operation and HTTP status.",
	}, []string{"operation", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_transport_failures_total",
		Help: "Gateway requests that produced no response.",
	}, []string{"operation"})
	reg.MustRegister(duration, requests, failures)
	return &GatewayMetrics{
		duration: duration,
		requests: requests,
		failures: failures,
	}
}

// ObserveDuration records the duration for the named operation.
func (g *GatewayMetrics) ObserveDuration(operation string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncResponse counts a response received with the given status.
func (g *GatewayMetrics) IncResponse(operation string, status int) {
	if g == nil || g.requests == nil {
		return
	}
	g.requests.WithLabelValues(normalizeLabel(operation), strconv.Itoa(status)).Inc()
}

// IncTransportFailure counts a request that never got a response.
func (g *GatewayMetrics) IncTransportFailure(operation string) {
	if g == nil || g.failures == nil {
		return
	}
	g.failures.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
