// Package metrics maintains the prometheus collectors for the web layer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Set of collectors updated by the middleware.
var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gjchain",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of requests handled by status code.",
	}, []string{"method", "code"})

	failures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gjchain",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Number of requests that returned an error.",
	})

	panics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gjchain",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Number of handler panics recovered.",
	})
)

// Collectors returns the collectors to register with a registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requests, failures, panics}
}

// AddRequest records a completed request.
func AddRequest(method string, statusCode int) {
	requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// AddError records a request that failed.
func AddError() {
	failures.Inc()
}

// AddPanic records a recovered panic.
func AddPanic() {
	panics.Inc()
}
