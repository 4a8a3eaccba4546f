package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troski/troski-backend/internal/api/handler"
	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/routing"
)

type fakeRouteService struct {
	routes    []routing.EnrichedRoute
	err       error
	calls     int
	lastOp    string
	lastQuery routing.Query
}

func (f *fakeRouteService) Routes(_ context.Context, q routing.Query) ([]routing.EnrichedRoute, error) {
	return f.record(routing.OpRoutes, q)
}

func (f *fakeRouteService) Directions(_ context.Context, q routing.Query) ([]routing.EnrichedRoute, error) {
	return f.record(routing.OpDirections, q)
}

func (f *fakeRouteService) record(op string, q routing.Query) ([]routing.EnrichedRoute, error) {
	f.calls++
	f.lastOp = op
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.routes, nil
}

func sampleRoutes() []routing.EnrichedRoute {
	return []routing.EnrichedRoute{
		{
			Passthrough: routing.Passthrough{
				Summary: "Ring Rd",
				Legs: []routing.Leg{{
					Duration: &routing.TextValue{Text: "20 mins", Value: routing.Float(1200)},
				}},
				Warnings: []string{"Tolls may apply"},
			},
			Name:            "Ring Rd",
			Origin:          "Accra Mall",
			Destination:     "Kotoka International Airport",
			DurationText:    "20 mins",
			DurationSeconds: routing.Float(1200),
			ArrivalTime:     routing.ArrivalTime{Text: "08:20", Text24h: "08:20", Text12h: "08:20 AM"},
			Traffic: routing.Traffic{
				Severity: routing.SeverityClear,
				Message:  "Clear roads - no significant delays",
			},
		},
		{
			Name:        "Route 2",
			Origin:      "Accra Mall",
			Destination: "Kotoka International Airport",
			Traffic:     routing.Traffic{Severity: routing.SeverityNone, Message: "Traffic data unavailable"},
		},
	}
}

func serve(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rec
}

func TestRouteHandler_Routes(t *testing.T) {
	svc := &fakeRouteService{routes: sampleRoutes()}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Routes, "/api/routes?origin=Accra+Mall&destination=Kotoka+International+Airport")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, routing.OpRoutes, svc.lastOp)
	assert.Equal(t, "Accra Mall", svc.lastQuery.Origin)
	assert.Equal(t, "Kotoka International Airport", svc.lastQuery.Destination)

	var body struct {
		Routes []map[string]any `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Routes, 2)
	assert.Equal(t, "Ring Rd", body.Routes[0]["name"])
	assert.Equal(t, float64(1200), body.Routes[0]["durationSeconds"])
	assert.Contains(t, body.Routes[0], "legs")
	assert.Nil(t, body.Routes[1]["durationSeconds"])
}

func TestRouteHandler_Directions(t *testing.T) {
	svc := &fakeRouteService{routes: sampleRoutes()[:1]}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Directions, "/api/directions?origin=Accra&destination=Tema")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, routing.OpDirections, svc.lastOp)

	var body models.RoutesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Routes, 1)
	assert.Equal(t, "Ring Rd", body.Routes[0].Name)
}

func TestRouteHandler_EmptyRoutes(t *testing.T) {
	svc := &fakeRouteService{routes: []routing.EnrichedRoute{}}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Routes, "/api/routes?origin=Accra&destination=Lagos")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"routes":[]}`, rec.Body.String())
}

func TestRouteHandler_FormatOptions(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		timeZone  string
		locale    string
		use12Hour bool
	}{
		{"defaults", "", "", "", false},
		{"all set", "&timeZone=Africa/Accra&locale=en-GH&use12Hour=true", "Africa/Accra", "en-GH", true},
		{"numeric flag", "&use12Hour=1", "", "", true},
		{"false flag", "&use12Hour=false", "", "", false},
		{"unparseable flag", "&use12Hour=yes", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRouteService{routes: []routing.EnrichedRoute{}}
			h := handler.NewRouteHandler(svc, zerolog.Nop())

			rec := serve(t, h.Routes, "/api/routes?origin=A&destination=B"+tt.query)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.timeZone, svc.lastQuery.Format.TimeZone)
			assert.Equal(t, tt.locale, svc.lastQuery.Format.Locale)
			assert.Equal(t, tt.use12Hour, svc.lastQuery.Format.Use12Hour)
		})
	}
}

func TestRouteHandler_MissingEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		target string
		fields []string
	}{
		{"no params", "/api/routes", []string{"origin", "destination"}},
		{"no origin", "/api/routes?destination=Tema", []string{"origin"}},
		{"no destination", "/api/routes?origin=Accra", []string{"destination"}},
		{"blank destination", "/api/routes?origin=Accra&destination=%20%20", []string{"destination"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRouteService{}
			h := handler.NewRouteHandler(svc, zerolog.Nop())

			rec := serve(t, h.Routes, tt.target)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, svc.calls, "service must not be called")

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, "origin and destination are required", problem.Error)

			fields := make([]string, 0, len(problem.Errors))
			for _, fe := range problem.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestRouteHandler_RelaysUpstreamResponse(t *testing.T) {
	upstreamBody := []byte(`{"error_message":"The provided API key is invalid.","routes":[],"status":"REQUEST_DENIED"}`)
	svc := &fakeRouteService{err: fmt.Errorf("fetching routes: %w", &routing.UpstreamError{
		Provider:    "googlemaps",
		Code:        "REQUEST_DENIED",
		StatusCode:  http.StatusForbidden,
		Body:        upstreamBody,
		ContentType: "application/json; charset=UTF-8",
		Err:         routing.ErrProviderRejected,
	})}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Routes, "/api/routes?origin=Accra&destination=Tema")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, string(upstreamBody), rec.Body.String())
}

func TestRouteHandler_GenericFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"upstream without response", &routing.UpstreamError{
			Provider: "googlemaps",
			Code:     "REQUEST_FAILED",
			Err:      routing.ErrProviderUnavailable,
		}},
		{"unexpected error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRouteService{err: tt.err}
			h := handler.NewRouteHandler(svc, zerolog.Nop())

			rec := serve(t, h.Routes, "/api/routes?origin=Accra&destination=Tema")

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.NotEmpty(t, problem.Error)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestRouteHandler_ServiceReportsMissingEndpoint(t *testing.T) {
	svc := &fakeRouteService{err: routing.ErrMissingEndpoint}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Routes, "/api/routes?origin=Accra&destination=Tema")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteHandler_SummaryView(t *testing.T) {
	svc := &fakeRouteService{routes: sampleRoutes()}
	h := handler.NewRouteHandler(svc, zerolog.Nop())

	rec := serve(t, h.Routes, "/api/routes?origin=Accra+Mall&destination=Kotoka+International+Airport&view=summary")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Routes []map[string]any `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Routes, 2)

	first := body.Routes[0]
	for _, key := range []string{"legs", "summary", "warnings", "overviewPolyline"} {
		assert.NotContains(t, first, key)
	}
	assert.Equal(t, "Ring Rd", first["name"])
	assert.Equal(t, float64(1200), first["durationSeconds"])
	assert.Contains(t, first, "arrivalTime")

	traffic, ok := first["traffic"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "clear", traffic["severity"])
}
