package scheduler

import (
	"strings"
	"time"
)

// Unit is the recurrence unit of the interval job.
type Unit string

const (
	UnitSeconds Unit = "seconds"
	UnitMinutes Unit = "minutes"
	UnitHours   Unit = "hours"
)

// ParseUnit normalizes raw. ok is false when raw is not a known unit, in which
// case the result is UnitSeconds.
func ParseUnit(raw string) (u Unit, ok bool) {
	switch Unit(strings.ToLower(strings.TrimSpace(raw))) {
	case UnitSeconds:
		return UnitSeconds, true
	case UnitMinutes:
		return UnitMinutes, true
	case UnitHours:
		return UnitHours, true
	default:
		return UnitSeconds, false
	}
}

func (u Unit) Duration() time.Duration {
	switch u {
	case UnitMinutes:
		return time.Minute
	case UnitHours:
		return time.Hour
	default:
		return time.Second
	}
}

// Every converts interval units into a duration. Non-positive intervals yield 0.
func Every(interval int, u Unit) time.Duration {
	if interval <= 0 {
		return 0
	}
	return time.Duration(interval) * u.Duration()
}
