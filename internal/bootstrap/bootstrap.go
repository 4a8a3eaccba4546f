// Package bootstrap builds the components shared by the troski binaries
// from a loaded configuration.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/troski/troski-backend/internal/auth"
	"github.com/troski/troski-backend/internal/config"
	"github.com/troski/troski-backend/internal/provider/resilience"
	"github.com/troski/troski-backend/internal/routing"
	"github.com/troski/troski-backend/internal/routing/googlemaps"
	"github.com/troski/troski-backend/internal/timefmt"
)

// NewLogger returns the process logger. Development and log.pretty use the
// console writer; otherwise JSON lines are written to w.
func NewLogger(cfg *config.Config, w io.Writer, service, version string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if cfg.Log.Pretty || cfg.IsDevelopment() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(cfg.ZerologLevel()).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// RouteServiceConfig holds the collaborators of NewRouteService.
type RouteServiceConfig struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *resilience.Registry
	Recorder routing.Recorder
}

// NewRouteService wires the Google Directions client, the arrival time
// formatter and the enricher into a routing.Service.
func NewRouteService(rc RouteServiceConfig) (*routing.Service, error) {
	cfg := rc.Config
	if err := cfg.Google.Validate(); err != nil {
		return nil, err
	}

	loc, err := cfg.Format.Location()
	if err != nil {
		return nil, fmt.Errorf("loading default time zone: %w", err)
	}

	client := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:   cfg.Google.APIKey,
		BaseURL:  cfg.Google.BaseURL,
		Timeout:  cfg.Google.Timeout,
		Language: cfg.Google.Language,
		Registry: rc.Registry,
		Logger:   rc.Logger.With().Str("component", "googlemaps").Logger(),
	})

	formatter := timefmt.WithFallback(
		timefmt.NewIntl(loc).WithDefaultLocale(cfg.Format.Locale),
		timefmt.NewManual(loc),
		rc.Logger,
	)

	return routing.NewService(routing.ServiceConfig{
		Fetcher:  client,
		Enricher: routing.NewEnricher(formatter),
		Logger:   rc.Logger.With().Str("component", "routing").Logger(),
		Recorder: rc.Recorder,
	}), nil
}

// NewJWTService returns the token service, or nil when auth is disabled.
func NewJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if !cfg.Auth.Enabled() {
		return nil, nil //nolint:nilnil // auth is optional
	}
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})
}
