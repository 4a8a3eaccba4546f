package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Operation names used for logging and metrics.
const (
	OpRoutes     = "routes"
	OpDirections = "directions"
)

// Recorder receives per-request routing measurements.
type Recorder interface {
	RecordFetch(provider, operation string, duration time.Duration, err error)
	RecordRoutes(operation string, routes []EnrichedRoute)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, string, time.Duration, error) {}
func (nopRecorder) RecordRoutes(string, []EnrichedRoute)             {}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Fetcher is the directions provider.
	Fetcher Fetcher

	// Enricher annotates and ranks fetched alternatives (default: manual UTC formatting).
	Enricher *Enricher

	// Logger for service operations.
	Logger zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Recorder receives fetch and result measurements (default: discard).
	Recorder Recorder
}

// Query is a route comparison request.
type Query struct {
	Origin      string
	Destination string
	Format      FormatOptions
}

// Service fetches route alternatives and returns them enriched and ranked.
// It keeps no state between requests.
type Service struct {
	fetcher  Fetcher
	enricher *Enricher
	logger   zerolog.Logger
	now      func() time.Time
	recorder Recorder
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	enricher := cfg.Enricher
	if enricher == nil {
		enricher = NewEnricher(nil)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		fetcher:  cfg.Fetcher,
		enricher: enricher,
		logger:   cfg.Logger,
		now:      now,
		recorder: recorder,
	}
}

// Routes returns every alternative the provider offers, ranked by duration.
func (s *Service) Routes(ctx context.Context, q Query) ([]EnrichedRoute, error) {
	return s.compare(ctx, OpRoutes, q, true)
}

// Directions returns the provider's single best route.
func (s *Service) Directions(ctx context.Context, q Query) ([]EnrichedRoute, error) {
	routes, err := s.compare(ctx, OpDirections, q, false)
	if err != nil {
		return nil, err
	}
	if len(routes) > 1 {
		routes = routes[:1]
	}
	return routes, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.fetcher.Name()
}

func (s *Service) compare(ctx context.Context, op string, q Query, alternatives bool) ([]EnrichedRoute, error) {
	origin := strings.TrimSpace(q.Origin)
	destination := strings.TrimSpace(q.Destination)
	if origin == "" || destination == "" {
		return nil, ErrMissingEndpoint
	}

	s.logger.Debug().
		Str("operation", op).
		Str("origin", origin).
		Str("destination", destination).
		Str("provider", s.fetcher.Name()).
		Msg("fetching route alternatives from provider")

	start := time.Now()
	alts, err := s.fetcher.FetchAlternatives(ctx, DirectionsRequest{
		Origin:       origin,
		Destination:  destination,
		Alternatives: alternatives,
	})
	s.recorder.RecordFetch(s.fetcher.Name(), op, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("operation", op).
			Str("origin", origin).
			Str("destination", destination).
			Msg("failed to fetch route alternatives")
		return nil, fmt.Errorf("fetching %s: %w", op, err)
	}

	routes := s.enricher.Enrich(alts, origin, destination, s.now(), q.Format)
	s.recorder.RecordRoutes(op, routes)

	s.logger.Debug().
		Str("operation", op).
		Int("alternatives", len(alts)).
		Int("route_count", len(routes)).
		Msg("enriched route alternatives")

	return routes, nil
}
