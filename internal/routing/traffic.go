package routing

import (
	"fmt"
	"math"
)

// Delay thresholds in whole minutes.
const (
	lightDelayMaxMinutes    = 5
	moderateDelayMaxMinutes = 15
)

// ClassifyTraffic compares a leg's live-traffic duration with its normal
// duration. A nil leg yields SeverityNone.
func ClassifyTraffic(leg *Leg) Traffic {
	if leg == nil {
		return Traffic{
			Severity: SeverityNone,
			Message:  "Traffic data unavailable",
		}
	}

	normalText, normal := measure(leg.Duration)
	trafficText, inTraffic := measure(leg.DurationInTraffic)

	t := Traffic{
		DurationInTrafficText: trafficText,
		NormalDurationText:    normalText,
	}

	n, okNormal := normal.Get()
	d, okTraffic := inTraffic.Get()
	if !okNormal || !okTraffic || d <= n {
		t.Severity = SeverityClear
		t.Message = "Clear roads - no significant delays"
		return t
	}

	t.HasTraffic = true
	t.DelayMinutes = int(math.Round((d - n) / 60))

	switch {
	case t.DelayMinutes <= lightDelayMaxMinutes:
		t.Severity = SeverityLight
		t.Message = "Light traffic - minimal delays expected"
	case t.DelayMinutes <= moderateDelayMaxMinutes:
		t.Severity = SeverityModerate
		t.Message = fmt.Sprintf("Moderate traffic - %d minutes delay", t.DelayMinutes)
	default:
		t.Severity = SeverityHeavy
		t.Message = fmt.Sprintf("Heavy traffic - %d minutes delay", t.DelayMinutes)
	}

	return t
}
