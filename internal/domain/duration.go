package domain

import (
	"math"
	"time"
)

// DefaultMaxDurationMin is the plausibility ceiling for computed durations:
// three days. Anything above it almost always comes from a misparsed date.
const DefaultMaxDurationMin = 4320

// ComputeDurationMinutes returns the elapsed whole minutes between start and
// end, rounded, or false when the value cannot be trusted: either timestamp
// missing, a non-positive span (clock skew, out-of-order observations), or a
// span above maxMinutes (misparsed dates producing multi-year durations).
func ComputeDurationMinutes(start, end time.Time, maxMinutes int) (int, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	mins := int(math.Round(end.Sub(start).Minutes()))
	if mins <= 0 || mins > maxMinutes {
		return 0, false
	}
	return mins, true
}
