// Package routing fetches route alternatives from a directions provider and
// turns them into a ranked, traffic- and arrival-annotated comparison.
package routing

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for routing operations.
var (
	// ErrMissingEndpoint indicates the origin or destination was not supplied.
	ErrMissingEndpoint = errors.New("origin and destination are required")
	// ErrProviderUnavailable indicates the routing provider is down, unreachable or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrProviderRejected indicates the provider answered but refused the request.
	ErrProviderRejected = errors.New("routing provider rejected the request")
)

// Fetcher obtains raw route alternatives from an external routing provider.
type Fetcher interface {
	// FetchAlternatives performs a single round trip to the provider.
	// A provider reporting no route yields an empty slice and a nil error.
	FetchAlternatives(ctx context.Context, req DirectionsRequest) ([]RouteAlternative, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// DirectionsRequest is the request sent to a Fetcher.
// Origin and Destination are opaque: addresses, place IDs or "lat,lng".
type DirectionsRequest struct {
	Origin       string
	Destination  string
	Alternatives bool // Ask the provider for alternatives, not just the best route
}

// LatLng is a coordinate pair as reported by the provider.
type LatLng struct {
	Lat float64 `json:"lat" groups:"summary,detail"`
	Lng float64 `json:"lng" groups:"summary,detail"`
}

// Bounds is the viewport of a route.
type Bounds struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// TextValue pairs a provider display string with its numeric value
// (meters for distances, seconds for durations).
type TextValue struct {
	Text  string      `json:"text,omitempty"`
	Value NullFloat64 `json:"value"`
}

// TimeValue is a transit timestamp. Value is in epoch seconds.
type TimeValue struct {
	Text     string      `json:"text,omitempty"`
	Value    NullFloat64 `json:"value"`
	TimeZone string      `json:"timeZone,omitempty"`
}

// Fare is the transit fare of a route, when the provider reports one.
type Fare struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
	Text     string  `json:"text,omitempty"`
}

// Leg is one leg of a route alternative. Every field is optional.
type Leg struct {
	Distance          *TextValue `json:"distance,omitempty"`
	Duration          *TextValue `json:"duration,omitempty"`
	DurationInTraffic *TextValue `json:"durationInTraffic,omitempty"` // Only with live-traffic data
	ArrivalTime       *TimeValue `json:"arrivalTime,omitempty"`       // Only for transit results
	DepartureTime     *TimeValue `json:"departureTime,omitempty"`
	StartAddress      string     `json:"startAddress,omitempty"`
	EndAddress        string     `json:"endAddress,omitempty"`
	StartLocation     *LatLng    `json:"startLocation,omitempty"`
	EndLocation       *LatLng    `json:"endLocation,omitempty"`
}

// RouteAlternative is a raw route as returned by the provider.
// Only the first leg is used for enrichment.
type RouteAlternative struct {
	Summary          string
	Legs             []Leg
	OverviewPolyline string
	Bounds           *Bounds
	Copyrights       string
	Warnings         []string
	WaypointOrder    []int
	Fare             *Fare
}

// Severity classifies the traffic delay of a route.
type Severity string

const (
	// SeverityNone means the route carried no leg to classify.
	SeverityNone Severity = "none"
	// SeverityClear means no delay over the normal duration.
	SeverityClear Severity = "clear"
	// SeverityLight is a delay of at most 5 minutes.
	SeverityLight Severity = "light"
	// SeverityModerate is a delay of more than 5 and at most 15 minutes.
	SeverityModerate Severity = "moderate"
	// SeverityHeavy is a delay of more than 15 minutes.
	SeverityHeavy Severity = "heavy"
)

// Passthrough holds the raw route fields carried forward into an EnrichedRoute.
type Passthrough struct {
	Summary          string   `json:"summary,omitempty" groups:"detail"`
	Legs             []Leg    `json:"legs,omitempty" groups:"detail"`
	OverviewPolyline string   `json:"overviewPolyline,omitempty" groups:"detail"`
	Bounds           *Bounds  `json:"bounds,omitempty" groups:"detail"`
	Copyrights       string   `json:"copyrights,omitempty" groups:"detail"`
	Warnings         []string `json:"warnings,omitempty" groups:"detail"`
	WaypointOrder    []int    `json:"waypointOrder,omitempty" groups:"detail"`
	Fare             *Fare    `json:"fare,omitempty" groups:"detail"`
}

// ArrivalTime is the estimated arrival of a route, rendered for display.
type ArrivalTime struct {
	Text        string `json:"text" groups:"summary,detail"`
	Text24h     string `json:"text24h" groups:"summary,detail"`
	Text12h     string `json:"text12h" groups:"summary,detail"`
	TimestampMs int64  `json:"timestampMs" groups:"summary,detail"`
	ISO8601     string `json:"iso8601" groups:"summary,detail"`
}

// Traffic describes the delay caused by live traffic on a route.
type Traffic struct {
	HasTraffic            bool     `json:"hasTraffic" groups:"summary,detail"`
	DelayMinutes          int      `json:"delayMinutes" groups:"summary,detail"`
	Message               string   `json:"message" groups:"summary,detail"`
	Severity              Severity `json:"severity" groups:"summary,detail"`
	DurationInTrafficText string   `json:"durationInTrafficText,omitempty" groups:"summary,detail"`
	NormalDurationText    string   `json:"normalDurationText,omitempty" groups:"summary,detail"`
}

// Geometry summarises the decoded overview polyline.
type Geometry struct {
	PointCount   int     `json:"pointCount" groups:"summary,detail"`
	LengthMeters float64 `json:"lengthMeters" groups:"summary,detail"`
}

// EnrichedRoute is a route alternative annotated with derived trip metadata.
// Derived fields shadow any passthrough field of the same JSON name.
type EnrichedRoute struct {
	Passthrough

	Name            string      `json:"name" groups:"summary,detail"`
	Origin          string      `json:"origin" groups:"summary,detail"`
	Destination     string      `json:"destination" groups:"summary,detail"`
	DistanceText    string      `json:"distanceText,omitempty" groups:"summary,detail"`
	DistanceMeters  NullFloat64 `json:"distanceMeters" groups:"summary,detail"`
	DurationText    string      `json:"durationText,omitempty" groups:"summary,detail"`
	DurationSeconds NullFloat64 `json:"durationSeconds" groups:"summary,detail"`
	ArrivalTime     ArrivalTime `json:"arrivalTime" groups:"summary,detail"`
	Traffic         Traffic     `json:"traffic" groups:"summary,detail"`
	StartLocation   *LatLng     `json:"startLocation" groups:"summary,detail"`
	EndLocation     *LatLng     `json:"endLocation" groups:"summary,detail"`
	Polyline        string      `json:"polyline,omitempty" groups:"summary,detail"`
	Geometry        *Geometry   `json:"geometry,omitempty" groups:"summary,detail"`
}

// UpstreamError reports a failed call to the routing provider.
// StatusCode and Body are set when the provider produced a response;
// they are relayed to the caller unchanged.
type UpstreamError struct {
	Provider    string // Provider that generated the error
	Code        string // Short machine-readable code
	Message     string // Human-readable error message
	StatusCode  int    // Upstream (or mapped) HTTP status, 0 when unknown
	Body        []byte // Upstream response body, nil when unknown
	ContentType string // Upstream response content type
	Err         error  // Underlying error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HasResponse reports whether the provider's status and body are known.
func (e *UpstreamError) HasResponse() bool {
	return e.StatusCode > 0 && len(e.Body) > 0
}
