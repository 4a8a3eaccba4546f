package middleware

import (
	"net/http"
	"strings"

	"github.com/troski/troski-backend/internal/api/models"
)

// apiHeaders are set on every response. Route results reflect live traffic,
// so nothing may be cached.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
}

// SecurityHeaders adds the API's security and caching headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range apiHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that set their own content type before writing take precedence,
// e.g. a relayed provider error.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects plain HTTP requests with a 403 problem. Behind a load
// balancer the scheme comes from X-Forwarded-Proto; requests without the
// header are let through so direct connections and local development work.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil && forwardedProto(r) == "http" {
				problem := models.NewProblem(
					models.ProblemTypeTLSRequired,
					"TLS required",
					http.StatusForbidden,
					GetRequestID(r.Context()),
				).WithDetail("This endpoint requires HTTPS")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// forwardedProto returns the client-facing scheme reported by the nearest
// proxy, lower-cased. Chained proxies append, so the first value wins.
func forwardedProto(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.ToLower(strings.TrimSpace(proto))
}
