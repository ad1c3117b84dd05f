package schedule

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals such as 09:00-10:00 and 10:00-11:00 do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && aEnd > bStart
}

// HasConflict reports whether a candidate slot on day clashes with any of existing.
// The slot with excludeID is ignored so that a slot never conflicts with itself on update.
func HasConflict(existing []Slot, day Weekday, start, end Clock, excludeID string) bool {
	for _, s := range existing {
		if s.Day != day || (excludeID != "" && s.ID == excludeID) {
			continue
		}
		if Overlaps(s.Start, s.End, start, end) {
			return true
		}
	}
	return false
}
