package domain

import "time"

// TriggerTime is one daily firing point (hour:minute, local clock).
type TriggerTime struct {
	Hour   int
	Minute int
	// Transient marks a one-off trigger added at startup for manual testing.
	Transient bool
}

// Minutes returns minutes since midnight.
func (t TriggerTime) Minutes() int { return t.Hour*60 + t.Minute }

func (t TriggerTime) String() string { return FormatMinutes(t.Minutes()) }

// On returns the instant of t on the calendar date of day, in day's location.
func (t TriggerTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// TriggerAt returns the trigger time for the wall clock of at, truncated to the minute.
func TriggerAt(at time.Time) TriggerTime {
	return TriggerTime{Hour: at.Hour(), Minute: at.Minute()}
}
