package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/liip/sheriff"
	"github.com/rs/zerolog"

	"github.com/troski/troski-backend/internal/api/middleware"
	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/api/response"
	"github.com/troski/troski-backend/internal/routing"
)

// ViewSummary drops the raw provider fields from each route.
const ViewSummary = "summary"

// RouteService compares route alternatives. *routing.Service implements it.
type RouteService interface {
	Routes(ctx context.Context, q routing.Query) ([]routing.EnrichedRoute, error)
	Directions(ctx context.Context, q routing.Query) ([]routing.EnrichedRoute, error)
}

type compareFunc func(ctx context.Context, q routing.Query) ([]routing.EnrichedRoute, error)

// RouteHandler handles the route comparison endpoints.
type RouteHandler struct {
	service RouteService
	logger  zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service RouteService, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		service: service,
		logger:  logger,
	}
}

// Routes handles GET /api/routes - every alternative, ranked by duration.
func (h *RouteHandler) Routes(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Routes)
}

// Directions handles GET /api/directions - the single best route.
func (h *RouteHandler) Directions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Directions)
}

func (h *RouteHandler) serve(w http.ResponseWriter, r *http.Request, compare compareFunc) {
	q := parseQuery(r)

	if fieldErrors := validateEndpoints(q); len(fieldErrors) > 0 {
		response.BadRequest(w, r, routing.ErrMissingEndpoint.Error(), fieldErrors)
		return
	}

	routes, err := compare(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := models.RoutesResponse{Routes: routes}
	if strings.EqualFold(r.URL.Query().Get("view"), ViewSummary) {
		summary, err := sheriff.Marshal(&sheriff.Options{Groups: []string{ViewSummary}}, resp)
		if err != nil {
			h.logger.Error().Err(err).
				Str("request_id", middleware.GetRequestID(r.Context())).
				Msg("failed to reduce routes to summary view")
			response.InternalError(w, r, "failed to render routes")
			return
		}
		response.JSON(w, r, http.StatusOK, summary)
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// writeError maps a comparison failure onto the response. A provider
// response with a known status and body is relayed unchanged.
func (h *RouteHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, routing.ErrMissingEndpoint) {
		response.BadRequest(w, r, routing.ErrMissingEndpoint.Error(), nil)
		return
	}

	var upstream *routing.UpstreamError
	if errors.As(err, &upstream) && upstream.HasResponse() {
		h.logger.Warn().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("provider", upstream.Provider).
			Str("code", upstream.Code).
			Int("status", upstream.StatusCode).
			Msg("relaying routing provider error")
		response.Raw(w, r, upstream.StatusCode, upstream.ContentType, upstream.Body)
		return
	}

	h.logger.Error().Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg("route comparison failed")
	response.InternalError(w, r, "failed to fetch routes")
}

func parseQuery(r *http.Request) routing.Query {
	v := r.URL.Query()
	return routing.Query{
		Origin:      v.Get("origin"),
		Destination: v.Get("destination"),
		Format: routing.FormatOptions{
			TimeZone:  strings.TrimSpace(v.Get("timeZone")),
			Locale:    strings.TrimSpace(v.Get("locale")),
			Use12Hour: parseBool(v.Get("use12Hour")),
		},
	}
}

// parseBool reads a boolean flag. Anything unparseable is false.
func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func validateEndpoints(q routing.Query) []models.FieldError {
	var fieldErrors []models.FieldError
	if strings.TrimSpace(q.Origin) == "" {
		fieldErrors = append(fieldErrors, models.RequiredField("origin"))
	}
	if strings.TrimSpace(q.Destination) == "" {
		fieldErrors = append(fieldErrors, models.RequiredField("destination"))
	}
	return fieldErrors
}
