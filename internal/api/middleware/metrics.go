package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/troski/troski-backend/internal/metrics"
	"github.com/troski/troski-backend/internal/routing"
)

const meterName = "github.com/troski/troski-backend/internal/api/middleware"

// Metrics holds the OpenTelemetry HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	bodySize metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var m Metrics
	var errs [3]error
	m.duration, errs[0] = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	m.active, errs[1] = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	m.bodySize, errs[2] = meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP server response bodies"),
		metric.WithUnit("By"),
	)
	if err := errors.Join(errs[:]...); err != nil {
		return nil, fmt.Errorf("creating HTTP server instruments: %w", err)
	}
	return &m, nil
}

// Middleware records duration, body size and in-flight count per request.
// Requests are labelled by route pattern to keep cardinality bounded.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			method := attribute.String("http.request.method", r.Method)

			m.active.Add(r.Context(), 1, metric.WithAttributes(method))
			defer m.active.Add(r.Context(), -1, metric.WithAttributes(method))

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			attrs := []attribute.KeyValue{
				method,
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", wrapped.statusCode),
			}
			// Only server faults are errors; 4xx is the caller's outcome.
			if wrapped.statusCode >= 500 {
				attrs = append(attrs, attribute.String("error.type", strconv.Itoa(wrapped.statusCode)))
			}

			opts := metric.WithAttributes(attrs...)
			m.duration.Record(r.Context(), time.Since(start).Seconds(), opts)
			m.bodySize.Record(r.Context(), wrapped.written, opts)
		})
	}
}

// ProviderMetrics mirrors the Prometheus provider counters into
// OpenTelemetry. It satisfies metrics.FetchObserver.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewProviderMetrics creates the directions provider instruments.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of directions provider calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Directions provider calls by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one provider round trip. Failed calls carry the
// outcome class and, when the provider answered, the relayed status.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("provider.outcome", metrics.Outcome(err)),
	}

	var upstream *routing.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", upstream.StatusCode))
	}

	// The request context may already be cancelled when the fetch failed.
	ctx := context.Background()
	opts := metric.WithAttributes(attrs...)
	m.requestDuration.Record(ctx, duration.Seconds(), opts)
	m.requestTotal.Add(ctx, 1, opts)
}
