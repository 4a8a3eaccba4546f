package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troski/troski-backend/internal/api"
	"github.com/troski/troski-backend/internal/api/middleware"
	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/auth"
	"github.com/troski/troski-backend/internal/metrics"
	"github.com/troski/troski-backend/internal/provider/resilience"
	"github.com/troski/troski-backend/internal/routing"
	"github.com/troski/troski-backend/internal/routing/googlemaps"
)

const directionsBody = `{
  "status": "OK",
  "routes": [
    {
      "summary": "N1",
      "legs": [{
        "distance": {"text": "14.2 km", "value": 14200},
        "duration": {"text": "30 mins", "value": 1800},
        "duration_in_traffic": {"text": "40 mins", "value": 2400}
      }]
    },
    {
      "summary": "Ring Rd",
      "legs": [{
        "distance": {"text": "12.9 km", "value": 12900},
        "duration": {"text": "20 mins", "value": 1200},
        "duration_in_traffic": {"text": "21 mins", "value": 1260}
      }]
    }
  ]
}`

// fakeProvider stands in for the Google Directions API.
type fakeProvider struct {
	server *httptest.Server
	status atomic.Int32
	body   atomic.Value
	calls  atomic.Int32
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.status.Store(http.StatusOK)
	p.body.Store(directionsBody)
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p.calls.Add(1)
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(int(p.status.Load()))
		_, _ = io.WriteString(w, p.body.Load().(string))
	}))
	t.Cleanup(p.server.Close)
	return p
}

type routerOptions struct {
	validator middleware.TokenValidator
	limit     middleware.RateLimitConfig
}

func newTestRouter(t *testing.T, provider *fakeProvider, opts routerOptions) (http.Handler, *prometheus.Registry) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	registry := resilience.NewRegistry()
	promRegistry := prometheus.NewRegistry()

	client := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:   "test-key",
		BaseURL:  provider.server.URL,
		Registry: registry,
		Logger:   logger,
	})

	service := routing.NewService(routing.ServiceConfig{
		Fetcher:  client,
		Logger:   logger,
		Now:      func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) },
		Recorder: metrics.NewRecorder(promRegistry, nil),
	})

	router := api.NewRouter(api.RouterConfig{
		Version:         "test",
		BuildTime:       "2024-01-01T00:00:00Z",
		Logger:          logger,
		RouteService:    service,
		Registry:        registry,
		MetricsHandler:  metrics.Handler(promRegistry),
		TokenValidator:  opts.validator,
		RoutesRateLimit: opts.limit,
	})
	return router, promRegistry
}

func do(router http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	w := do(router, http.MethodGet, "/api/routes?origin=Accra+Mall&destination=Tema", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var body models.RoutesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Routes, 2)

	// Ranked by normal duration: Ring Rd (1200s) before N1 (1800s).
	assert.Equal(t, "Ring Rd", body.Routes[0].Name)
	assert.Equal(t, routing.SeverityLight, body.Routes[0].Traffic.Severity)
	assert.Equal(t, "N1", body.Routes[1].Name)
	assert.Equal(t, routing.SeverityModerate, body.Routes[1].Traffic.Severity)
	assert.Equal(t, "Accra Mall", body.Routes[0].Origin)
	assert.Equal(t, "08:20", body.Routes[0].ArrivalTime.Text)
}

func TestRouter_Directions(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	w := do(router, http.MethodGet, "/api/directions?origin=Accra+Mall&destination=Tema&use12Hour=true", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body models.RoutesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Routes, 1)
	assert.Equal(t, "Ring Rd", body.Routes[0].Name)
	assert.Equal(t, "08:20 AM", body.Routes[0].ArrivalTime.Text)
}

func TestRouter_MissingEndpointNeverCallsProvider(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	for _, target := range []string{"/api/routes", "/api/routes?origin=Accra", "/api/directions?destination=Tema"} {
		w := do(router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"error":"origin and destination are required"`)
	}
	assert.Zero(t, provider.calls.Load())
}

func TestRouter_RelaysProviderError(t *testing.T) {
	provider := newFakeProvider(t)
	provider.status.Store(http.StatusForbidden)
	provider.body.Store(`{"error_message":"API key not valid"}`)
	router, _ := newTestRouter(t, provider, routerOptions{})

	w := do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, `{"error_message":"API key not valid"}`, w.Body.String())
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestRouter_UnreachableProviderIsGeneric500(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})
	provider.server.Close()

	w := do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.NotEmpty(t, problem.Error)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := do(router, method, "/api/routes?origin=Accra&destination=Tema", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	}
	assert.Zero(t, provider.calls.Load())
}

func TestRouter_NotFound(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	w := do(router, http.MethodGet, "/api/unknown", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not-found")
}

func TestRouter_RequiresTokenWhenConfigured(t *testing.T) {
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.troski.app",
		Audience:   "troski-api",
	})
	require.NoError(t, err)

	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{validator: jwtService})

	w := do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, provider.calls.Load())

	token, _, err := jwtService.GenerateAccessToken("ios-app", "", time.Hour)
	require.NoError(t, err)

	w = do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", http.Header{
		"Authorization": []string{"Bearer " + token},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Ops endpoints stay public.
	w = do(router, http.MethodGet, "/api/ops/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RateLimitsRouteEndpoints(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{
		limit: middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute},
	})

	w := do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/directions?origin=Accra&destination=Tema", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestRouter_OpsEndpoints(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	w := do(router, http.MethodGet, "/api/ops/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)

	w = do(router, http.MethodGet, "/api/ops/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// One successful call so the registry has something to report.
	do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)

	w = do(router, http.MethodGet, "/api/ops/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.Providers, 1)
	assert.Equal(t, googlemaps.ProviderName, status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)
}

func TestRouter_Metrics(t *testing.T) {
	provider := newFakeProvider(t)
	router, _ := newTestRouter(t, provider, routerOptions{})

	do(router, http.MethodGet, "/api/routes?origin=Accra&destination=Tema", nil)

	w := do(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `troski_provider_fetch_total{operation="routes",outcome="ok",provider="googlemaps"} 1`)
	assert.Contains(t, w.Body.String(), `troski_routes_traffic_severity_total{operation="routes",severity="light"} 1`)
}
