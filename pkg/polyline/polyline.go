// Package polyline encodes and decodes Google's encoded polyline format.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned when an encoded polyline cannot be decoded.
var ErrMalformed = errors.New("malformed polyline")

// maxChunks bounds the 5-bit chunks of one value. Six chunks cover every
// coordinate at 5 decimal places; seven leaves headroom.
const maxChunks = 7

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Decode decodes a polyline-encoded string at 5 decimal places of precision.
// An empty string decodes to nil. Truncated input, characters outside the
// encoding alphabet and a dangling latitude all return ErrMalformed.
func Decode(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	coords := make([]Coordinate, 0, len(encoded)/4)
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, fmt.Errorf("%w: latitude without longitude at offset %d", ErrMalformed, index)
		}
		lngDelta, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += latDelta
		lng += lngDelta
		coords = append(coords, Coordinate{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}

	return coords, nil
}

// decodeValue reads one zig-zag encoded value starting at index and returns
// the value and the index just past it.
func decodeValue(encoded string, index int) (int, int, error) {
	start := index
	shift, result := 0, 0

	for chunk := 0; chunk < maxChunks; chunk++ {
		if index >= len(encoded) {
			return 0, 0, fmt.Errorf("%w: truncated value at offset %d", ErrMalformed, start)
		}
		c := encoded[index]
		if c < 63 || c > 126 {
			return 0, 0, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformed, c, index)
		}
		b := int(c) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5

		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, nil
			}
			return result >> 1, index, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: value too long at offset %d", ErrMalformed, start)
}

// Encode encodes coordinates at 5 decimal places of precision.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*6)
	prevLat, prevLng := 0, 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * 1e5))
		lng := int(math.Round(coord.Lng * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Length returns the length of the path in meters along great circles.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversine(coords[i-1], coords[i])
	}
	return total
}

const earthRadiusMeters = 6371000

func haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
