package routing

import (
	"cmp"
	"slices"
)

// Rank sorts routes in place by ascending duration. Routes without a
// duration go last; equal durations keep their relative order.
func Rank(routes []EnrichedRoute) {
	slices.SortStableFunc(routes, func(a, b EnrichedRoute) int {
		return cmp.Compare(a.DurationSeconds.OrInf(), b.DurationSeconds.OrInf())
	})
}
