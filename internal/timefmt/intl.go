package timefmt

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// dayPeriod holds the AM/PM markers of a language.
type dayPeriod struct {
	am string
	pm string
}

// dayPeriods lists the markers known per language. The first entry is the
// matcher default.
var dayPeriods = []struct {
	tag    language.Tag
	period dayPeriod
}{
	{language.English, dayPeriod{am: "AM", pm: "PM"}},
	{language.Make("ak"), dayPeriod{am: "AN", pm: "EW"}},
	{language.Arabic, dayPeriod{am: "ص", pm: "م"}},
	{language.German, dayPeriod{am: "AM", pm: "PM"}},
	{language.Spanish, dayPeriod{am: "a. m.", pm: "p. m."}},
	{language.French, dayPeriod{am: "AM", pm: "PM"}},
	{language.Hindi, dayPeriod{am: "am", pm: "pm"}},
	{language.Italian, dayPeriod{am: "AM", pm: "PM"}},
	{language.Japanese, dayPeriod{am: "午前", pm: "午後"}},
	{language.Korean, dayPeriod{am: "오전", pm: "오후"}},
	{language.Dutch, dayPeriod{am: "a.m.", pm: "p.m."}},
	{language.Portuguese, dayPeriod{am: "AM", pm: "PM"}},
	{language.Swahili, dayPeriod{am: "AM", pm: "PM"}},
	{language.Chinese, dayPeriod{am: "上午", pm: "下午"}},
}

// Intl formats using IANA time zones and BCP 47 locales.
// Locales without known markers get a plain AM/PM suffix.
type Intl struct {
	defaultLoc    *time.Location
	defaultLocale string
	matcher       language.Matcher
}

// NewIntl creates an Intl formatter. defaultLoc is used when Options carry no
// time zone; nil means UTC.
func NewIntl(defaultLoc *time.Location) *Intl {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}

	tags := make([]language.Tag, 0, len(dayPeriods))
	for _, dp := range dayPeriods {
		tags = append(tags, dp.tag)
	}

	return &Intl{
		defaultLoc: defaultLoc,
		matcher:    language.NewMatcher(tags),
	}
}

// WithDefaultLocale sets the locale used when Options carry none.
func (f *Intl) WithDefaultLocale(locale string) *Intl {
	f.defaultLocale = locale
	return f
}

// Format implements Formatter. It fails on an unknown time zone or a
// malformed locale.
func (f *Intl) Format(t time.Time, opts Options) (Clock, error) {
	loc := f.defaultLoc
	if opts.TimeZone != "" {
		l, err := time.LoadLocation(opts.TimeZone)
		if err != nil {
			return Clock{}, fmt.Errorf("%w: %q", ErrUnknownTimeZone, opts.TimeZone)
		}
		loc = l
	}

	locale := opts.Locale
	if locale == "" {
		locale = f.defaultLocale
	}

	period, err := f.periodFor(locale)
	if err != nil {
		return Clock{}, err
	}

	local := t.In(loc)
	marker := period.am
	if local.Hour() >= 12 {
		marker = period.pm
	}
	if marker == "" {
		marker = meridiem(local.Hour())
	}

	return Clock{
		Text24h: local.Format("15:04"),
		Text12h: local.Format("03:04") + " " + marker,
	}, nil
}

// periodFor resolves the day-period markers for a locale.
// An empty locale resolves to English.
func (f *Intl) periodFor(locale string) (dayPeriod, error) {
	if locale == "" {
		return dayPeriods[0].period, nil
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return dayPeriod{}, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}

	_, idx, confidence := f.matcher.Match(tag)
	if confidence == language.No {
		return dayPeriod{}, nil
	}
	return dayPeriods[idx].period, nil
}
