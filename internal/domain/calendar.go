package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Calendar is the ordered set of daily trigger times plus the reminder text.
// It is immutable after construction and safe for concurrent use.
type Calendar struct {
	times   []TriggerTime // ascending by Minutes, no duplicates
	message string
}

// NewCalendar parses the configured "HH:MM" times and appends extra triggers.
// Every malformed entry is reported in a single *ConfigurationError.
func NewCalendar(times []string, message string, extra ...TriggerTime) (*Calendar, error) {
	var merr *multierror.Error
	parsed := make([]TriggerTime, 0, len(times)+len(extra))
	for _, s := range times {
		tt, err := ParseTriggerTime(s)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		parsed = append(parsed, tt)
	}
	for _, tt := range extra {
		if tt.Hour < 0 || tt.Hour > 23 || tt.Minute < 0 || tt.Minute > 59 {
			merr = multierror.Append(merr, errors.New("extra trigger out of range: "+tt.String()))
			continue
		}
		parsed = append(parsed, tt)
	}
	if strings.TrimSpace(message) == "" {
		merr = multierror.Append(merr, errors.New("empty reminder message"))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, &ConfigurationError{Field: "REMINDER_TIMES", Err: err}
	}

	return &Calendar{times: normalize(parsed), message: message}, nil
}

// normalize sorts by time of day and drops duplicates; a configured time wins
// over a transient one at the same minute.
func normalize(in []TriggerTime) []TriggerTime {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Minutes() != in[j].Minutes() {
			return in[i].Minutes() < in[j].Minutes()
		}
		return !in[i].Transient && in[j].Transient
	})
	out := in[:0]
	for _, tt := range in {
		if len(out) > 0 && out[len(out)-1].Minutes() == tt.Minutes() {
			continue
		}
		out = append(out, tt)
	}
	return out
}

// NextTrigger returns the chronologically next trigger instant strictly after now:
// the earliest remaining one today, otherwise the first one tomorrow.
// It reports false only for an empty calendar.
func (c *Calendar) NextTrigger(now time.Time) (time.Time, bool) {
	if len(c.times) == 0 {
		return time.Time{}, false
	}

	var best time.Time
	for _, tt := range c.times {
		at := tt.On(now)
		if at.After(now) && (best.IsZero() || at.Before(best)) {
			best = at
		}
	}
	if !best.IsZero() {
		return best, true
	}

	first := c.times[0]
	return time.Date(now.Year(), now.Month(), now.Day()+1, first.Hour, first.Minute, 0, 0, now.Location()), true
}

// Firing is one dated occurrence of a trigger.
type Firing struct {
	Trigger TriggerTime
	At      time.Time
}

// Day returns the calendar date of the occurrence, "2006-01-02".
func (f Firing) Day() string { return f.At.Format(time.DateOnly) }

// Due returns the occurrences that have been reached by now and are at most
// tolerance old, oldest first. Yesterday's occurrences are included so a late
// trigger still fires after midnight. A non-positive tolerance admits only the
// trigger's own minute.
func (c *Calendar) Due(now time.Time, tolerance time.Duration) []Firing {
	if tolerance <= 0 {
		tolerance = time.Minute - time.Nanosecond
	}
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, now.Location())

	var due []Firing
	for _, day := range [...]time.Time{yesterday, now} {
		for _, tt := range c.times {
			at := tt.On(day)
			if at.After(now) || now.Sub(at) > tolerance {
				continue
			}
			due = append(due, Firing{Trigger: tt, At: at})
		}
	}
	return due
}

// IsDue reports whether some occurrence is due at now and fired has not seen
// it. The calendar keeps no firing state; fired may be nil.
func (c *Calendar) IsDue(now time.Time, tolerance time.Duration, fired func(Firing) bool) bool {
	for _, f := range c.Due(now, tolerance) {
		if fired == nil || !fired(f) {
			return true
		}
	}
	return false
}

// Times returns a copy of the trigger times in ascending order.
func (c *Calendar) Times() []TriggerTime {
	return append([]TriggerTime(nil), c.times...)
}

// Strings returns the trigger times as "HH:MM".
func (c *Calendar) Strings() []string {
	out := make([]string, len(c.times))
	for i, tt := range c.times {
		out[i] = tt.String()
	}
	return out
}

func (c *Calendar) Message() string { return c.message }
