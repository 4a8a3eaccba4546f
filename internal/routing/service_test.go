package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockFetcher is a mock directions provider for testing.
type mockFetcher struct {
	name      string
	alts      []RouteAlternative
	err       error
	callCount atomic.Int32

	mu      sync.Mutex
	lastReq DirectionsRequest
}

func (m *mockFetcher) FetchAlternatives(_ context.Context, req DirectionsRequest) ([]RouteAlternative, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.alts, nil
}

func (m *mockFetcher) Name() string {
	return m.name
}

// recordingRecorder captures what the service reports.
type recordingRecorder struct {
	mu         sync.Mutex
	fetches    []error
	operations []string
	routeCount int
}

func (r *recordingRecorder) RecordFetch(_, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, err)
	r.operations = append(r.operations, operation)
}

func (r *recordingRecorder) RecordRoutes(_ string, routes []EnrichedRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routeCount += len(routes)
}

var fixedNow = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

func threeAlternatives() []RouteAlternative {
	return []RouteAlternative{
		{Summary: "N1", Legs: []Leg{{Duration: &TextValue{Text: "30 mins", Value: Float(1800)}}}},
		{Summary: "Ring Rd", Legs: []Leg{{Duration: &TextValue{Text: "20 mins", Value: Float(1200)}}}},
		{Summary: "Liberation Rd", Legs: []Leg{{Duration: &TextValue{Text: "25 mins", Value: Float(1500)}}}},
	}
}

func TestService_Routes_RanksAlternatives(t *testing.T) {
	fetcher := &mockFetcher{name: "test-provider", alts: threeAlternatives()}
	recorder := &recordingRecorder{}

	service := NewService(ServiceConfig{
		Fetcher:  fetcher,
		Now:      func() time.Time { return fixedNow },
		Recorder: recorder,
	})

	routes, err := service.Routes(context.Background(), Query{
		Origin:      "Accra Mall",
		Destination: "Kotoka International Airport",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", fetcher.callCount.Load())
	}
	if !fetcher.lastReq.Alternatives {
		t.Error("expected alternatives to be requested")
	}

	want := []string{"Ring Rd", "Liberation Rd", "N1"}
	if len(routes) != len(want) {
		t.Fatalf("expected %d routes, got %d", len(want), len(routes))
	}
	for i, name := range want {
		if routes[i].Name != name {
			t.Errorf("route %d: expected %q, got %q", i, name, routes[i].Name)
		}
		if routes[i].Origin != "Accra Mall" || routes[i].Destination != "Kotoka International Airport" {
			t.Errorf("route %d: endpoints not echoed: %q -> %q", i, routes[i].Origin, routes[i].Destination)
		}
	}

	if len(recorder.fetches) != 1 || recorder.fetches[0] != nil {
		t.Errorf("expected one successful fetch recorded, got %v", recorder.fetches)
	}
	if recorder.operations[0] != OpRoutes {
		t.Errorf("expected operation %q, got %q", OpRoutes, recorder.operations[0])
	}
	if recorder.routeCount != 3 {
		t.Errorf("expected 3 routes recorded, got %d", recorder.routeCount)
	}
}

func TestService_Directions_ReturnsBestRoute(t *testing.T) {
	fetcher := &mockFetcher{name: "test-provider", alts: threeAlternatives()}
	service := NewService(ServiceConfig{
		Fetcher: fetcher,
		Now:     func() time.Time { return fixedNow },
	})

	routes, err := service.Directions(context.Background(), Query{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.lastReq.Alternatives {
		t.Error("expected alternatives not to be requested")
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].Name != "Ring Rd" {
		t.Errorf("expected fastest route, got %q", routes[0].Name)
	}
}

func TestService_MissingEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"missing origin", Query{Destination: "B"}},
		{"missing destination", Query{Origin: "A"}},
		{"missing both", Query{}},
		{"whitespace origin", Query{Origin: "   ", Destination: "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{name: "test-provider", alts: threeAlternatives()}
			service := NewService(ServiceConfig{Fetcher: fetcher})

			routes, err := service.Routes(context.Background(), tt.query)
			if !errors.Is(err, ErrMissingEndpoint) {
				t.Errorf("expected ErrMissingEndpoint, got %v", err)
			}
			if routes != nil {
				t.Errorf("expected no routes, got %d", len(routes))
			}
			if fetcher.callCount.Load() != 0 {
				t.Errorf("provider must not be contacted, got %d calls", fetcher.callCount.Load())
			}
		})
	}
}

func TestService_UpstreamError(t *testing.T) {
	upstream := &UpstreamError{
		Provider:   "test-provider",
		Code:       "REQUEST_DENIED",
		Message:    "request denied",
		StatusCode: 403,
		Body:       []byte(`{"status":"REQUEST_DENIED"}`),
		Err:        ErrProviderRejected,
	}
	fetcher := &mockFetcher{name: "test-provider", err: upstream}
	recorder := &recordingRecorder{}
	service := NewService(ServiceConfig{Fetcher: fetcher, Recorder: recorder})

	routes, err := service.Routes(context.Background(), Query{Origin: "A", Destination: "B"})
	if routes != nil {
		t.Errorf("expected no partial result, got %d routes", len(routes))
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if ue.StatusCode != 403 || string(ue.Body) != `{"status":"REQUEST_DENIED"}` {
		t.Errorf("upstream response not preserved: %d %s", ue.StatusCode, ue.Body)
	}
	if !errors.Is(err, ErrProviderRejected) {
		t.Error("expected error chain to include ErrProviderRejected")
	}
	if len(recorder.fetches) != 1 || recorder.fetches[0] == nil {
		t.Errorf("expected failed fetch to be recorded, got %v", recorder.fetches)
	}
	if recorder.routeCount != 0 {
		t.Errorf("expected no routes recorded, got %d", recorder.routeCount)
	}
}

func TestService_NoRoutes(t *testing.T) {
	fetcher := &mockFetcher{name: "test-provider", alts: []RouteAlternative{}}
	service := NewService(ServiceConfig{Fetcher: fetcher})

	routes, err := service.Routes(context.Background(), Query{Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if routes == nil || len(routes) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", routes)
	}
}

func TestService_CapturesNowOncePerRequest(t *testing.T) {
	var calls atomic.Int32
	fetcher := &mockFetcher{name: "test-provider", alts: threeAlternatives()}
	service := NewService(ServiceConfig{
		Fetcher: fetcher,
		Now: func() time.Time {
			calls.Add(1)
			return fixedNow
		},
	})

	if _, err := service.Routes(context.Background(), Query{Origin: "A", Destination: "B"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected now to be read once, got %d", calls.Load())
	}
}

func TestService_ConcurrentRequests(t *testing.T) {
	fetcher := &mockFetcher{name: "test-provider", alts: threeAlternatives()}
	service := NewService(ServiceConfig{
		Fetcher: fetcher,
		Now:     func() time.Time { return fixedNow },
	})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			routes, err := service.Routes(context.Background(), Query{Origin: "A", Destination: "B"})
			if err != nil {
				errs <- err
				return
			}
			if len(routes) != 3 || routes[0].Name != "Ring Rd" {
				errs <- errors.New("unexpected ranking")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent request failed: %v", err)
	}
	if fetcher.callCount.Load() != 10 {
		t.Errorf("expected 10 provider calls, got %d", fetcher.callCount.Load())
	}
}

func TestService_ProviderName(t *testing.T) {
	service := NewService(ServiceConfig{Fetcher: &mockFetcher{name: "googlemaps"}})
	if service.ProviderName() != "googlemaps" {
		t.Errorf("expected googlemaps, got %s", service.ProviderName())
	}
}
