package models

import "github.com/troski/troski-backend/internal/routing"

// RoutesResponse is the body of /api/routes and /api/directions.
type RoutesResponse struct {
	Routes []routing.EnrichedRoute `json:"routes" groups:"summary,detail"`
}
