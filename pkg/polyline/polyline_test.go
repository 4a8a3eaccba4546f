package polyline

import (
	"errors"
	"math"
	"testing"
)

func TestDecode_ValidPolyline(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		expected []Coordinate
	}{
		{
			name:    "single point",
			encoded: "_p~iF~ps|U",
			expected: []Coordinate{
				{Lat: 38.5, Lng: -120.2},
			},
		},
		{
			name:    "two points",
			encoded: "_p~iF~ps|U_ulLnnqC",
			expected: []Coordinate{
				{Lat: 38.5, Lng: -120.2},
				{Lat: 40.7, Lng: -120.95},
			},
		},
		{
			name:    "three points - Google example",
			encoded: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			expected: []Coordinate{
				{Lat: 38.5, Lng: -120.2},
				{Lat: 40.7, Lng: -120.95},
				{Lat: 43.252, Lng: -126.453},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d coordinates, got %d", len(tt.expected), len(result))
			}

			for i, coord := range result {
				if !coordsEqual(coord, tt.expected[i], 0.00001) {
					t.Errorf("coordinate %d: expected %+v, got %+v", i, tt.expected[i], coord)
				}
			}
		})
	}
}

func TestDecode_EmptyString(t *testing.T) {
	result, err := Decode("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"latitude without longitude", "_p~iF"},
		{"truncated value", "_p~i"},
		{"truncated second value", "_p~iF~ps"},
		{"character below alphabet", "_p~iF~ps|U  "},
		{"character above alphabet", "_p~iF\x7f"},
		{"endless continuation", "~~~~~~~~~~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.encoded)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if result != nil {
				t.Errorf("expected nil coordinates on error, got %v", result)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		coords []Coordinate
	}{
		{
			name:   "single point",
			coords: []Coordinate{{Lat: 38.5, Lng: -120.2}},
		},
		{
			name: "three points",
			coords: []Coordinate{
				{Lat: 38.5, Lng: -120.2},
				{Lat: 40.7, Lng: -120.95},
				{Lat: 43.252, Lng: -126.453},
			},
		},
		{
			name: "Accra Circle to Kotoka airport",
			coords: []Coordinate{
				{Lat: 5.56026, Lng: -0.21455},
				{Lat: 5.58412, Lng: -0.19887},
				{Lat: 5.60519, Lng: -0.17187},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.coords)
			if encoded == "" {
				t.Fatal("expected non-empty encoded string")
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("round-trip decode failed: %v", err)
			}
			if len(decoded) != len(tt.coords) {
				t.Fatalf("round-trip: expected %d coordinates, got %d", len(tt.coords), len(decoded))
			}
			for i, coord := range decoded {
				if !coordsEqual(coord, tt.coords[i], 0.00001) {
					t.Errorf("round-trip coordinate %d: expected %+v, got %+v", i, tt.coords[i], coord)
				}
			}
		})
	}
}

func TestEncode_Known(t *testing.T) {
	coords := []Coordinate{
		{Lat: 38.5, Lng: -120.2},
		{Lat: 40.7, Lng: -120.95},
		{Lat: 43.252, Lng: -126.453},
	}
	if got := Encode(coords); got != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("unexpected encoding %q", got)
	}
	if got := Encode(nil); got != "" {
		t.Errorf("expected empty string for nil coordinates, got %q", got)
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name           string
		coords         []Coordinate
		expectedMeters float64
		tolerance      float64
	}{
		{"empty", nil, 0, 0},
		{"single point", []Coordinate{{Lat: 5.6, Lng: -0.2}}, 0, 0},
		{
			name:           "1 degree latitude at equator - roughly 111km",
			coords:         []Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}},
			expectedMeters: 111195,
			tolerance:      100,
		},
		{
			name: "Accra to Kumasi - roughly 200km",
			coords: []Coordinate{
				{Lat: 5.6037, Lng: -0.1870},
				{Lat: 6.6885, Lng: -1.6244},
			},
			expectedMeters: 199000,
			tolerance:      5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Length(tt.coords)
			if diff := math.Abs(result - tt.expectedMeters); diff > tt.tolerance {
				t.Errorf("expected ~%.0fm (±%.0f), got %.0fm", tt.expectedMeters, tt.tolerance, result)
			}
		})
	}
}

func coordsEqual(a, b Coordinate, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tolerance && math.Abs(a.Lng-b.Lng) <= tolerance
}

func BenchmarkDecode(b *testing.B) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(encoded)
	}
}
