package timefmt

import (
	"fmt"
	"time"
)

// Manual renders wall-clock fields of a fixed location by hand.
// It ignores Options and cannot fail.
type Manual struct {
	loc *time.Location
}

// NewManual creates a Manual formatter for loc. A nil loc means UTC.
func NewManual(loc *time.Location) *Manual {
	if loc == nil {
		loc = time.UTC
	}
	return &Manual{loc: loc}
}

// Format implements Formatter.
func (m *Manual) Format(t time.Time, _ Options) (Clock, error) {
	local := t.In(m.loc)
	hour, minute := local.Hour(), local.Minute()

	return Clock{
		Text24h: fmt.Sprintf("%02d:%02d", hour, minute),
		Text12h: fmt.Sprintf("%02d:%02d %s", hour12(hour), minute, meridiem(hour)),
	}, nil
}

// hour12 maps 0-23 onto 12, 1..11, 12, 1..11.
func hour12(hour int) int {
	h := hour % 12
	if h == 0 {
		return 12
	}
	return h
}

func meridiem(hour int) string {
	if hour < 12 {
		return "AM"
	}
	return "PM"
}
