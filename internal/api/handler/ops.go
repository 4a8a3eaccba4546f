// Package handler provides HTTP handlers for the troski API.
package handler

import (
	"net/http"
	"time"

	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/api/response"
	"github.com/troski/troski-backend/internal/provider/resilience"
)

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports provider circuit breaker state.
	Registry *resilience.Registry

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	registry := cfg.Registry
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  registry,
		now:       now,
	}
}

// HealthCheck handles GET /api/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /api/ops/ready - readiness check.
// The service is ready once a directions provider is registered. An open
// circuit degrades readiness but does not fail it, since restarting the
// instance would not fix the provider.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	providers := h.providerStatuses()
	if len(providers) == 0 {
		health := models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(h.now()),
			Details: map[string]any{"reason": "no routing provider registered"},
		}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	details := make(map[string]any, len(providers))
	for _, p := range providers {
		details[p.Provider] = p.CircuitState
	}

	health := models.Health{
		Status:  overallStatus(providers),
		Time:    models.Timestamp(h.now()),
		Details: details,
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /api/ops/status - provider circuit breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	providers := h.providerStatuses()
	status := models.SystemStatus{
		Status:    overallStatus(providers),
		Time:      models.Timestamp(h.now()),
		Version:   h.version,
		BuildTime: h.buildTime,
		Providers: providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	all := h.registry.Snapshot()
	statuses := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		status := models.ProviderStatus{
			Provider:            p.Name,
			Status:              healthStatus(p),
			CircuitState:        p.CircuitState.String(),
			ConsecutiveFailures: p.Counts.ConsecutiveFailures,
			LastSuccessAt:       models.TimestampPtr(p.LastSuccessAt),
			LastFailureAt:       models.TimestampPtr(p.LastFailureAt),
		}
		if p.LastError != "" {
			msg := p.LastError
			status.Message = &msg
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func healthStatus(p resilience.ProviderHealth) models.HealthStatus {
	switch p.Condition() {
	case resilience.ConditionDown:
		return models.HealthStatusFail
	case resilience.ConditionDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

// overallStatus is OK when every provider is OK and DEGRADED otherwise.
// A failing provider does not make the API itself fail.
func overallStatus(providers []models.ProviderStatus) models.HealthStatus {
	for _, p := range providers {
		if p.Status != models.HealthStatusOK {
			return models.HealthStatusDegraded
		}
	}
	return models.HealthStatusOK
}
