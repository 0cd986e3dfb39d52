package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyTime     = errors.New("empty time")
	ErrInvalidTime   = errors.New("expected HH:MM")
	ErrInvalidHour   = errors.New("invalid hour")
	ErrInvalidMinute = errors.New("invalid minute")
)

// ParseTriggerTime parses a 24-hour "HH:MM" (or "H:MM") time of day.
func ParseTriggerTime(s string) (TriggerTime, error) {
	mins, err := parseHHMM(s)
	if err != nil {
		return TriggerTime{}, fmt.Errorf("%q: %w", s, err)
	}
	return TriggerTime{Hour: mins / 60, Minute: mins % 60}, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyTime
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[1]) != 2 || parts[0] == "" || len(parts[0]) > 2 {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidHour
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidMinute
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// FormatUntil splits a positive duration into whole hours and minutes.
func FormatUntil(d time.Duration) (hours, minutes int) {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return total / 60, total % 60
}
