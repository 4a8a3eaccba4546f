package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/troski/troski-backend/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// RoutesRateLimit applies to endpoints that call the directions provider (30 req/min).
	RoutesRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to cheap endpoints such as ops (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware using client IP address.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceededHandler(cfg)),
	)
}

// RateLimitByClient creates a rate limiter keyed on the authenticated client
// ID. Unauthenticated requests fall back to the client IP.
func RateLimitByClient(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByClientOrIP),
		httprate.WithLimitHandler(limitExceededHandler(cfg)),
	)
}

func keyByClientOrIP(r *http.Request) (string, error) {
	if clientID := GetClientID(r.Context()); clientID != "" {
		return "client:" + clientID, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceededHandler writes an RFC7807 problem when the limit is hit.
// httprate does not expose the reset time, so Retry-After is the full window.
func limitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path

		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
