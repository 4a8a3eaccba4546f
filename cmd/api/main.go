// Package main provides the entrypoint for the troski API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // IANA zones for arrival times on minimal images

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/troski/troski-backend/internal/api"
	"github.com/troski/troski-backend/internal/api/middleware"
	"github.com/troski/troski-backend/internal/bootstrap"
	"github.com/troski/troski-backend/internal/config"
	"github.com/troski/troski-backend/internal/metrics"
	"github.com/troski/troski-backend/internal/provider/resilience"
	"github.com/troski/troski-backend/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load(config.Options{ConfigFile: os.Getenv("TROSKI_CONFIG_FILE")})
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	serviceName := cfg.Telemetry.ServiceName
	log := bootstrap.NewLogger(cfg, os.Stdout, serviceName, Version)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Server.Env).
		Msg("starting troski API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ExportInterval: cfg.Telemetry.Interval,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize HTTP metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := resilience.NewRegistry()
	routeService, err := bootstrap.NewRouteService(bootstrap.RouteServiceConfig{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Recorder: metrics.NewRecorder(promRegistry, providerMetrics),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize routing service")
	}
	log.Info().
		Str("provider", routeService.ProviderName()).
		Str("time_zone", cfg.Format.TimeZone).
		Msg("routing service initialized")

	routerCfg := api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
		MetricsHandler: metrics.Handler(promRegistry),
		RouteService:   routeService,
		Registry:       registry,
		RequireTLS:     cfg.Server.RequireTLS,
		RoutesRateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowLength: cfg.RateLimit.Window,
		},
	}

	jwtService, err := bootstrap.NewJWTService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token validation")
	}
	if jwtService != nil {
		routerCfg.TokenValidator = jwtService
		log.Info().Str("issuer", cfg.Auth.Issuer).Msg("bearer authentication enabled")
	} else {
		log.Warn().Msg("auth.signing_key not set - route endpoints are public")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
