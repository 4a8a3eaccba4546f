package routing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"

	"github.com/troski/troski-backend/internal/timefmt"
	"github.com/troski/troski-backend/pkg/polyline"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// maxOffsetSeconds is the largest duration that can be added to a time.Time.
var maxOffsetSeconds = float64(math.MaxInt64/int64(time.Millisecond)) / 1000

// FormatOptions controls how arrival times are rendered.
type FormatOptions struct {
	TimeZone  string // IANA name; empty uses the formatter default
	Locale    string // BCP 47 tag; empty uses the formatter default
	Use12Hour bool   // Selects the 12-hour rendering for ArrivalTime.Text
}

// ArrivalFormatter renders an instant on both clocks. Implementations must
// not fail; timefmt.Fallback is the production implementation.
type ArrivalFormatter interface {
	Clock(t time.Time, opts timefmt.Options) timefmt.Clock
}

// Enricher turns raw route alternatives into ranked EnrichedRoutes.
// It holds no per-request state and is safe for concurrent use.
type Enricher struct {
	formatter ArrivalFormatter
}

// NewEnricher creates an Enricher. A nil formatter formats manually in UTC.
func NewEnricher(formatter ArrivalFormatter) *Enricher {
	if formatter == nil {
		formatter = timefmt.WithFallback(nil, timefmt.NewManual(time.UTC), zerolog.Nop())
	}
	return &Enricher{formatter: formatter}
}

// Enrich derives trip metadata for every alternative and returns them ranked
// by duration. now is the single reference instant for the whole pass.
// Malformed legs degrade field by field; Enrich never fails.
func (e *Enricher) Enrich(alts []RouteAlternative, origin, destination string, now time.Time, opts FormatOptions) []EnrichedRoute {
	routes := make([]EnrichedRoute, 0, len(alts))
	for i := range alts {
		routes = append(routes, e.enrichOne(i, &alts[i], origin, destination, now, opts))
	}
	Rank(routes)
	return routes
}

func (e *Enricher) enrichOne(index int, alt *RouteAlternative, origin, destination string, now time.Time, opts FormatOptions) EnrichedRoute {
	// Passthrough first so every derived assignment below takes precedence.
	route := EnrichedRoute{Passthrough: passthroughOf(alt)}

	var leg *Leg
	if len(alt.Legs) > 0 {
		leg = &alt.Legs[0]
	}

	route.Name = routeName(index, alt.Summary)
	route.Origin = origin
	route.Destination = destination
	route.Polyline = alt.OverviewPolyline
	route.Geometry = geometryOf(alt.OverviewPolyline)
	route.Traffic = ClassifyTraffic(leg)

	var duration NullFloat64
	if leg != nil {
		route.DistanceText, route.DistanceMeters = measure(leg.Distance)
		route.DurationText, duration = measure(leg.Duration)
		route.DurationSeconds = duration
		route.StartLocation = cloneLatLng(leg.StartLocation)
		route.EndLocation = cloneLatLng(leg.EndLocation)
	}

	route.ArrivalTime = e.arrival(arrivalBase(leg, duration, now), opts)
	return route
}

// arrival renders the arrival instant. Text follows opts.Use12Hour.
func (e *Enricher) arrival(at time.Time, opts FormatOptions) ArrivalTime {
	clock := e.formatter.Clock(at, timefmt.Options{
		TimeZone: opts.TimeZone,
		Locale:   opts.Locale,
	})

	text := clock.Text24h
	if opts.Use12Hour {
		text = clock.Text12h
	}

	return ArrivalTime{
		Text:        text,
		Text24h:     clock.Text24h,
		Text12h:     clock.Text12h,
		TimestampMs: at.UnixMilli(),
		ISO8601:     at.UTC().Format(isoLayout),
	}
}

// arrivalBase picks the instant of arrival: the transit arrival timestamp,
// else now plus the travel duration, else now.
func arrivalBase(leg *Leg, duration NullFloat64, now time.Time) time.Time {
	if leg != nil && leg.ArrivalTime != nil {
		if ts, ok := leg.ArrivalTime.Value.Get(); ok && math.Abs(ts) <= maxOffsetSeconds {
			return time.UnixMilli(int64(math.Round(ts * 1000)))
		}
	}
	if d, ok := duration.Get(); ok && d <= maxOffsetSeconds {
		return now.Add(time.Duration(math.Round(d*1000)) * time.Millisecond)
	}
	return now
}

// measure extracts the display text and a non-negative finite value.
func measure(tv *TextValue) (string, NullFloat64) {
	if tv == nil {
		return "", NullFloat64{}
	}
	return tv.Text, nonNegative(tv.Value)
}

func nonNegative(n NullFloat64) NullFloat64 {
	if v, ok := n.Get(); ok && v >= 0 {
		return Float(v)
	}
	return NullFloat64{}
}

func routeName(index int, summary string) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return fmt.Sprintf("Route %d", index+1)
}

// passthroughOf deep-copies the raw route so the enriched output shares no
// memory with the provider payload.
func passthroughOf(alt *RouteAlternative) Passthrough {
	var p Passthrough
	if err := copier.CopyWithOption(&p, alt, copier.Option{DeepCopy: true}); err != nil {
		return Passthrough{
			Summary:          alt.Summary,
			OverviewPolyline: alt.OverviewPolyline,
			Copyrights:       alt.Copyrights,
		}
	}
	return p
}

// geometryOf summarises an encoded overview polyline. Empty or undecodable
// polylines yield nil.
func geometryOf(encoded string) *Geometry {
	coords, err := polyline.Decode(encoded)
	if err != nil || len(coords) == 0 {
		return nil
	}
	return &Geometry{
		PointCount:   len(coords),
		LengthMeters: math.Round(polyline.Length(coords)),
	}
}

func cloneLatLng(p *LatLng) *LatLng {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
