// Package schedule turns a user's scheduling intent into durable pending
// post records. A recurring intent is materialized as one one-shot record
// per selected weekday at scheduling time; nothing regenerates the next
// occurrence after a record fires.
package schedule

import "time"

// NextOccurrence computes the next time the given weekday and time-of-day
// occurs at or after now, in now's location. When the requested weekday is
// today and the slot equals now exactly, the slot counts as not yet passed
// and fires today; only a slot strictly before now rolls to next week.
func NextOccurrence(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	daysToAdd := (int(weekday) - int(now.Weekday()) + 7) % 7
	if daysToAdd == 0 {
		slot := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if slot.Before(now) {
			daysToAdd = 7
		}
	}
	candidate := now.AddDate(0, 0, daysToAdd)
	return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, now.Location())
}
