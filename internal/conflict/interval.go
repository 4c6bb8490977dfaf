// Package conflict decides whether bookings contend for a shared resource
// during overlapping time.
package conflict

import "time"

// MinutesPerDay bounds booking minute offsets; intervals live in [0, 1440).
const MinutesPerDay = 24 * 60

// Overlaps reports whether the half-open minute intervals [aStart, aEnd) and
// [bStart, bEnd) overlap. Touching boundaries (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ValidInterval reports whether [startMin, endMin) is a well-formed slot
// within a single day.
func ValidInterval(startMin, endMin int) bool {
	return startMin >= 0 && endMin <= MinutesPerDay && startMin < endMin
}

// Weekday maps a calendar date to the Monday=1..Sunday=7 convention used by
// booking templates, from Go's Sunday=0 weekday.
func Weekday(t time.Time) int {
	if d := int(t.Weekday()); d != 0 {
		return d
	}
	return 7
}
