package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// probePrefixes are polled by load balancers and scrapers. Successful probes
// are logged at debug level.
var probePrefixes = []string{"/api/ops/", "/metrics"}

// Logger returns a middleware that writes one access log line per request.
// Origins and destinations are user locations and are never logged.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			event := log.WithLevel(accessLevel(r.URL.Path, wrapped.statusCode))

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				event = event.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}
			if clientID := GetClientID(r.Context()); clientID != "" {
				event = event.Str("client_id", clientID)
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

// accessLevel maps a response to a log level: server errors log at error,
// client errors at warn, successful probes at debug.
func accessLevel(path string, status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	case isProbe(path):
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func isProbe(path string) bool {
	for _, prefix := range probePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
