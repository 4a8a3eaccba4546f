package googlemaps

import "github.com/troski/troski-backend/internal/routing"

// Provider-level status codes carried in the response body.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusInvalidRequest = "INVALID_REQUEST"
	statusRequestDenied  = "REQUEST_DENIED"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusOverDailyLimit = "OVER_DAILY_LIMIT"
	statusUnknownError   = "UNKNOWN_ERROR"
)

// gmResponse represents the Directions API response.
type gmResponse struct {
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Routes       []gmRoute `json:"routes"`
}

// gmRoute represents a single route alternative.
type gmRoute struct {
	Summary          string      `json:"summary"`
	Legs             []gmLeg     `json:"legs"`
	OverviewPolyline *gmPolyline `json:"overview_polyline,omitempty"`
	Bounds           *gmBounds   `json:"bounds,omitempty"`
	Copyrights       string      `json:"copyrights,omitempty"`
	Warnings         []string    `json:"warnings,omitempty"`
	WaypointOrder    []int       `json:"waypoint_order,omitempty"`
	Fare             *gmFare     `json:"fare,omitempty"`
}

type gmPolyline struct {
	Points string `json:"points"`
}

type gmBounds struct {
	Northeast gmLatLng `json:"northeast"`
	Southwest gmLatLng `json:"southwest"`
}

type gmLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// gmTextValue is a distance or duration. Value is meters or seconds.
type gmTextValue struct {
	Text  string              `json:"text"`
	Value routing.NullFloat64 `json:"value"`
}

// gmTime is a transit timestamp. Value is epoch seconds.
type gmTime struct {
	Text     string              `json:"text"`
	Value    routing.NullFloat64 `json:"value"`
	TimeZone string              `json:"time_zone"`
}

type gmFare struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
	Text     string  `json:"text"`
}

// gmLeg represents one leg of a route. Steps are not decoded.
type gmLeg struct {
	Distance          *gmTextValue `json:"distance,omitempty"`
	Duration          *gmTextValue `json:"duration,omitempty"`
	DurationInTraffic *gmTextValue `json:"duration_in_traffic,omitempty"`
	ArrivalTime       *gmTime      `json:"arrival_time,omitempty"`
	DepartureTime     *gmTime      `json:"departure_time,omitempty"`
	StartAddress      string       `json:"start_address,omitempty"`
	EndAddress        string       `json:"end_address,omitempty"`
	StartLocation     *gmLatLng    `json:"start_location,omitempty"`
	EndLocation       *gmLatLng    `json:"end_location,omitempty"`
}

func (r *gmRoute) toAlternative() routing.RouteAlternative {
	alt := routing.RouteAlternative{
		Summary:       r.Summary,
		Legs:          make([]routing.Leg, 0, len(r.Legs)),
		Copyrights:    r.Copyrights,
		Warnings:      r.Warnings,
		WaypointOrder: r.WaypointOrder,
	}

	if r.OverviewPolyline != nil {
		alt.OverviewPolyline = r.OverviewPolyline.Points
	}
	if r.Bounds != nil {
		alt.Bounds = &routing.Bounds{
			Northeast: r.Bounds.Northeast.toLatLng(),
			Southwest: r.Bounds.Southwest.toLatLng(),
		}
	}
	if r.Fare != nil {
		alt.Fare = &routing.Fare{
			Currency: r.Fare.Currency,
			Value:    r.Fare.Value,
			Text:     r.Fare.Text,
		}
	}

	for i := range r.Legs {
		alt.Legs = append(alt.Legs, r.Legs[i].toLeg())
	}
	return alt
}

func (l *gmLeg) toLeg() routing.Leg {
	leg := routing.Leg{
		Distance:          l.Distance.toTextValue(),
		Duration:          l.Duration.toTextValue(),
		DurationInTraffic: l.DurationInTraffic.toTextValue(),
		ArrivalTime:       l.ArrivalTime.toTimeValue(),
		DepartureTime:     l.DepartureTime.toTimeValue(),
		StartAddress:      l.StartAddress,
		EndAddress:        l.EndAddress,
	}
	if l.StartLocation != nil {
		p := l.StartLocation.toLatLng()
		leg.StartLocation = &p
	}
	if l.EndLocation != nil {
		p := l.EndLocation.toLatLng()
		leg.EndLocation = &p
	}
	return leg
}

func (v *gmTextValue) toTextValue() *routing.TextValue {
	if v == nil {
		return nil
	}
	return &routing.TextValue{Text: v.Text, Value: v.Value}
}

func (v *gmTime) toTimeValue() *routing.TimeValue {
	if v == nil {
		return nil
	}
	return &routing.TimeValue{Text: v.Text, Value: v.Value, TimeZone: v.TimeZone}
}

func (p gmLatLng) toLatLng() routing.LatLng {
	return routing.LatLng{Lat: p.Lat, Lng: p.Lng}
}
