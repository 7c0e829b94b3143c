package recurrence

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind represents supported recurrence patterns.
type Kind int

const (
	// KindUnspecified indicates the rule kind is not set.
	KindUnspecified Kind = iota
	// KindDaily repeats every Interval days.
	KindDaily
	// KindWeekly repeats on the selected weekdays every Interval weeks.
	KindWeekly
	// KindBiweekly repeats on the selected weekdays every 2*Interval weeks.
	KindBiweekly
	// KindMonthly repeats on a fixed day or an Nth weekday every Interval months.
	KindMonthly
)

var kindNames = map[Kind]string{
	KindDaily:    "daily",
	KindWeekly:   "weekly",
	KindBiweekly: "biweekly",
	KindMonthly:  "monthly",
}

// ParseKind converts the stored textual form of a kind.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for kind, name := range kindNames {
		if name == normalized {
			return kind, nil
		}
	}
	return KindUnspecified, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unspecified"
}

// WeekOfMonth is an ordinal week within a month: 1..5 or WeekOfMonthLast.
type WeekOfMonth int

// WeekOfMonthLast selects the last matching weekday of the month.
const WeekOfMonthLast WeekOfMonth = -1

// ParseWeekOfMonth accepts "1".."5" or "last".
func ParseWeekOfMonth(s string) (WeekOfMonth, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "last" {
		return WeekOfMonthLast, nil
	}
	n, err := strconv.Atoi(normalized)
	if err != nil || !WeekOfMonth(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekOfMonth, s)
	}
	return WeekOfMonth(n), nil
}

// Valid reports whether w is within 1..5 or WeekOfMonthLast.
func (w WeekOfMonth) Valid() bool {
	return w == WeekOfMonthLast || (w >= 1 && w <= 5)
}

func (w WeekOfMonth) String() string {
	if w == WeekOfMonthLast {
		return "last"
	}
	return strconv.Itoa(int(w))
}
