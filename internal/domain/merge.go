package domain

import (
	"strings"
	"time"
)

// MergePolicy carries the tunable parts of reconciliation.
type MergePolicy struct {
	// MaxDurationMin is the plausibility ceiling for durations in minutes.
	MaxDurationMin int
}

// DefaultMergePolicy returns the policy used in production.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{MaxDurationMin: DefaultMaxDurationMin}
}

// Merge folds one observation into the stored record (nil for a first
// observation) and returns the new record state. It is pure: the caller
// supplies "now" and persists the result through a single conditional upsert.
//
// Field policy:
//   - descriptive text (title, link, place, city, status, type, description):
//     a non-blank incoming value always overwrites; the feed is authoritative
//     for current wording;
//   - publication and start timestamps: fill-if-empty, the earliest observed
//     value sticks;
//   - end time: an explicit incoming value wins unconditionally; otherwise the
//     observation that first detects closure synthesizes end = now;
//   - closure is sticky, and the detection timestamp is written exactly once;
//   - duration: an incoming value wins; else it is computed here on the
//     closure-detecting call; else a stored value above the ceiling is cleared
//     so earlier bad computations heal themselves.
func Merge(stored *Incident, obs Observation, pol MergePolicy, now time.Time) Incident {
	var cur Incident
	if stored != nil {
		cur = *stored
	} else {
		cur = Incident{
			ID:          obs.ID,
			FirstSeenAt: now,
			CreatedAt:   now,
		}
	}

	overwriteText(&cur.Title, obs.Title)
	overwriteText(&cur.Link, obs.Link)
	overwriteText(&cur.PlaceText, obs.PlaceText)
	overwriteText(&cur.CityText, obs.CityText)
	overwriteText(&cur.StatusText, obs.StatusText)
	overwriteText(&cur.EventType, obs.EventType)
	overwriteText(&cur.DescriptionRaw, obs.DescriptionRaw)

	if cur.PubDate == nil && obs.PubDate != nil {
		cur.PubDate = copyTime(obs.PubDate)
	}
	if cur.StartTime == nil && obs.StartTime != nil {
		cur.StartTime = copyTime(obs.StartTime)
	}

	newClosure := obs.IsClosed && !cur.IsClosed

	switch {
	case obs.EndTime != nil:
		cur.EndTime = copyTime(obs.EndTime)
	case newClosure:
		end := now
		cur.EndTime = &end
	}

	if newClosure {
		cur.IsClosed = true
		detected := now
		cur.ClosedDetectedAt = &detected
	}

	switch {
	case obs.DurationMin != nil:
		d := *obs.DurationMin
		cur.DurationMin = &d
	case newClosure:
		start := cur.FirstSeenAt
		if cur.StartTime != nil {
			start = *cur.StartTime
		}
		if d, ok := ComputeDurationMinutes(start, *cur.EndTime, pol.MaxDurationMin); ok {
			cur.DurationMin = &d
		}
	case cur.DurationMin != nil && *cur.DurationMin > pol.MaxDurationMin:
		// Self-correcting clear of an earlier implausible computation.
		cur.DurationMin = nil
	}

	cur.LastSeenAt = now
	cur.UpdatedAt = now
	return cur
}

func overwriteText(dst *string, src *string) {
	if src == nil {
		return
	}
	if v := strings.TrimSpace(*src); v != "" {
		*dst = v
	}
}

func copyTime(t *time.Time) *time.Time {
	v := *t
	return &v
}
