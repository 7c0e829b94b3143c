package recurrence

import (
	"regexp"
	"strconv"
	"time"
)

const (
	defaultHour   = 14
	defaultMinute = 0
)

var timeOfDayPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// ParseTimeOfDay reads an "HH:MM" 24-hour string. Malformed or out-of-range
// input yields 14:00.
func ParseTimeOfDay(s string) (hour, minute int) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return defaultHour, defaultMinute
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute
}

// AtTimeOfDay returns the calendar date of date, in date's location, at the
// wall-clock time hhmm with zero seconds.
func AtTimeOfDay(date time.Time, hhmm string) time.Time {
	hour, minute := ParseTimeOfDay(hhmm)
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location())
}

// IsExcluded reports whether candidate falls on the same calendar date as
// any exclusion. Each value is read in its own location, so a date-only
// exclusion stored as midnight UTC matches that date.
func IsExcluded(candidate time.Time, excluded []time.Time) bool {
	cy, cm, cd := candidate.Date()
	for _, ex := range excluded {
		ey, em, ed := ex.Date()
		if ey == cy && em == cm && ed == cd {
			return true
		}
	}
	return false
}
