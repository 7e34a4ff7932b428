// Package domain models incident observations and the reconciled incident
// record, and holds the pure logic that merges one into the other.
//
// # Data Source
//
// Observations originate from an upstream feed watcher that polls a public
// incident feed, extracts structured fields from each entry, and publishes
// one flat JSON observation per entry to the Kafka source topic. An incident
// appears in the feed repeatedly over its lifetime, so the same identifier
// arrives many times with partial and occasionally contradictory fields.
//
// # Reconciliation Conventions
//
// Identifier:
//
//	The feed's unique reference (GUID), with the entry link or title as a
//	fallback when the reference is absent. Stable across re-observations of
//	the same incident, which makes upserts idempotent.
//
// Closure:
//
//	Closure is sticky. Once an observation reports an incident closed, later
//	observations can never reopen it. The moment closure is first detected is
//	recorded exactly once and drives duration computation.
//
// Duration:
//
//	Whole minutes between start and end time, rounded. Values that are zero,
//	negative, or above the configured plausibility ceiling (default 4320
//	minutes, three days) are treated as unknown rather than persisted; a
//	stored value above the ceiling is cleared on the next observation so the
//	dataset heals from earlier bad computations.
//
// Timestamps:
//
//	Feed entries carry times in several layouts (RFC 3339, bare ISO date-time
//	with or without seconds, RFC 1123 publication dates). Parsing is lenient;
//	anything unparsable is treated as absent.
//
// Coordinates:
//
//	Either both latitude and longitude are present and inside the operating
//	region rectangle, or both are absent. Out-of-region coordinates are never
//	stored.
package domain
