package routing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat64 is a number that may be absent.
// Unlike a plain float64, zero is a present value; NaN and infinities are
// never valid.
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// Float returns a NullFloat64 holding v, or an absent value when v is not finite.
func Float(v float64) NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat64{}
	}
	return NullFloat64{Float64: v, Valid: true}
}

// Get returns the value and whether it is present and finite.
func (n NullFloat64) Get() (float64, bool) {
	if !n.Valid || math.IsNaN(n.Float64) || math.IsInf(n.Float64, 0) {
		return 0, false
	}
	return n.Float64, true
}

// OrInf returns the value, or +Inf when absent. Used as a ranking key.
func (n NullFloat64) OrInf() float64 {
	if v, ok := n.Get(); ok {
		return v
	}
	return math.Inf(1)
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	v, ok := n.Get()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Anything that is not a JSON number decodes to an absent value instead of
// failing the surrounding document.
func (n *NullFloat64) UnmarshalJSON(data []byte) error {
	*n = NullFloat64{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil //nolint:nilerr // malformed numbers degrade to absent
	}
	*n = Float(v)
	return nil
}
