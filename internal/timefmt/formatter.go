// Package timefmt renders instants as wall-clock times for a requested
// time zone and locale.
package timefmt

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Predefined formatting errors.
var (
	// ErrUnknownTimeZone is returned when a time zone name cannot be resolved.
	ErrUnknownTimeZone = errors.New("unknown time zone")
	// ErrInvalidLocale is returned when a locale is not a well-formed BCP 47 tag.
	ErrInvalidLocale = errors.New("invalid locale")
)

// Options selects the time zone and locale of a rendering.
// Empty fields use the formatter's defaults.
type Options struct {
	TimeZone string // IANA name, e.g. "Africa/Accra"
	Locale   string // BCP 47 tag, e.g. "en-GH"
}

// Clock is an instant rendered on a 24-hour and a 12-hour clock.
type Clock struct {
	Text24h string // "HH:MM"
	Text12h string // "HH:MM AM", the day-period marker is always present
}

// Formatter renders an instant as a Clock.
type Formatter interface {
	Format(t time.Time, opts Options) (Clock, error)
}

// Fallback formats with a primary Formatter and switches to a Manual
// formatter when the primary fails. It never returns an error.
type Fallback struct {
	primary  Formatter
	fallback *Manual
	logger   zerolog.Logger
}

// WithFallback wraps primary so that any failure is answered by fallback.
func WithFallback(primary Formatter, fallback *Manual, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Clock renders t, using the fallback formatter if the primary one fails.
func (f *Fallback) Clock(t time.Time, opts Options) Clock {
	if f.primary != nil {
		c, err := f.primary.Format(t, opts)
		if err == nil {
			return c
		}
		f.logger.Debug().Err(err).
			Str("time_zone", opts.TimeZone).
			Str("locale", opts.Locale).
			Msg("falling back to manual clock formatting")
	}

	c, _ := f.fallback.Format(t, opts) //nolint:errcheck // manual formatting cannot fail
	return c
}
