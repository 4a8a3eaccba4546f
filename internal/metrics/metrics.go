// Package metrics exposes route comparison counters in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/troski/troski-backend/internal/provider/resilience"
	"github.com/troski/troski-backend/internal/routing"
)

const namespace = "troski"

// Fetch outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// FetchObserver receives provider call measurements in addition to the
// Prometheus collectors, e.g. the OpenTelemetry provider metrics.
type FetchObserver interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// Recorder implements routing.Recorder.
type Recorder struct {
	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	routesReturned  *prometheus.HistogramVec
	trafficSeverity *prometheus.CounterVec
	upstreamStatus  *prometheus.CounterVec
	observer        FetchObserver
}

// NewRecorder registers the route comparison collectors with reg.
// observer may be nil.
func NewRecorder(reg prometheus.Registerer, observer FetchObserver) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_total",
			Help:      "Directions provider calls by outcome",
		}, []string{"provider", "operation", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "Directions provider call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider", "operation"}),

		routesReturned: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routes",
			Name:      "returned",
			Help:      "Number of routes returned per request",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}, []string{"operation"}),

		trafficSeverity: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routes",
			Name:      "traffic_severity_total",
			Help:      "Returned routes by traffic severity",
		}, []string{"operation", "severity"}),

		upstreamStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "upstream_errors_total",
			Help:      "Provider errors by relayed HTTP status",
		}, []string{"provider", "status"}),

		observer: observer,
	}
}

// RecordFetch records one provider round trip.
func (r *Recorder) RecordFetch(provider, operation string, duration time.Duration, err error) {
	r.fetchTotal.WithLabelValues(provider, operation, Outcome(err)).Inc()
	r.fetchDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())

	var ue *routing.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode > 0 {
		r.upstreamStatus.WithLabelValues(provider, strconv.Itoa(ue.StatusCode)).Inc()
	}

	if r.observer != nil {
		r.observer.RecordRequest(provider, operation, duration, err)
	}
}

// RecordRoutes records the size and traffic mix of a response.
func (r *Recorder) RecordRoutes(operation string, routes []routing.EnrichedRoute) {
	r.routesReturned.WithLabelValues(operation).Observe(float64(len(routes)))
	for i := range routes {
		r.trafficSeverity.WithLabelValues(operation, string(routes[i].Traffic.Severity)).Inc()
	}
}

// Outcome classifies a fetch error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, routing.ErrProviderRejected):
		return OutcomeRejected
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// Handler serves the collectors of g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
