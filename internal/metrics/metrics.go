// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// DomainConflicts counts rejected writes; kind is overlap, seat_taken or title_taken.
	DomainConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_conflicts_total",
			Help: "Writes rejected because they conflict with existing data",
		},
		[]string{"kind"},
	)

	DomainOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_operations_total",
			Help: "Domain write operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	LockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lock_wait_seconds",
			Help:    "Time spent waiting for a keyed lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"scope"},
	)
)

// Outcome names err for the outcome label using the sentinel to name
// mapping in kinds.
func Outcome(err error, kinds map[error]string) string {
	if err == nil {
		return "ok"
	}
	for sentinel, name := range kinds {
		if errors.Is(err, sentinel) {
			return name
		}
	}
	return "error"
}

// RecordOperation increments domain_operations_total.
func RecordOperation(operation, outcome string) {
	DomainOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordConflict increments domain_conflicts_total.
func RecordConflict(kind string) {
	DomainConflicts.WithLabelValues(kind).Inc()
}

// RecordLockWait observes how long a lock on scope took to acquire.
func RecordLockWait(scope string, d time.Duration) {
	LockWait.WithLabelValues(scope).Observe(d.Seconds())
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
