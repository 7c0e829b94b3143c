package application

import (
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/recurrence"
)

// MaterializeOptions tunes one materialization call.
type MaterializeOptions struct {
	// From is the start of the expansion window; zero means now.
	From time.Time
	// MaxOccurrences caps the generated instants; <= 0 means recurrence.DefaultMaxOccurrences.
	MaxOccurrences int
}

// AgendaWarning records a failed best-effort agenda write. The event and its
// meeting configuration were created regardless.
type AgendaWarning struct {
	EventID string
	Start   time.Time
	Err     error
}

// RecurrenceRule converts a stored rule into the pure recurrence input,
// validating the enumerated fields.
func RecurrenceRule(record persistence.RecurringRule) (recurrence.Rule, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(record.OrgID) == "" {
		vErr.add("orgId", "organization is required")
	}

	kind, err := recurrence.ParseKind(record.RecurrenceType)
	if err != nil {
		vErr.add("recurrenceType", "must be one of daily, weekly, biweekly, monthly")
	}

	var weekOfMonth *recurrence.WeekOfMonth
	if record.WeekOfMonth != nil && strings.TrimSpace(*record.WeekOfMonth) != "" {
		parsed, err := recurrence.ParseWeekOfMonth(*record.WeekOfMonth)
		if err != nil {
			vErr.add("weekOfMonth", "must be 1-5 or last")
		} else {
			weekOfMonth = &parsed
		}
	}

	if vErr.HasErrors() {
		return recurrence.Rule{}, vErr
	}

	return recurrence.Rule{
		ID:              record.ID,
		OrgID:           record.OrgID,
		Kind:            kind,
		Interval:        record.Interval,
		DaysOfWeek:      append([]time.Weekday(nil), record.DaysOfWeek...),
		DayOfMonth:      record.DayOfMonth,
		WeekOfMonth:     weekOfMonth,
		TimeOfDay:       record.TimeOfDay,
		DurationMinutes: record.DurationMinutes,
		StartDate:       record.StartDate,
		EndDate:         record.EndDate,
		OccurrenceLimit: record.OccurrenceLimit,
		ExcludeDates:    append([]time.Time(nil), record.ExcludeDates...),
	}, nil
}
