package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

var (
	ruleCounter  uint64
	eventCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ------------------------- Recurring rule fixtures -------------------------

// RuleFixture represents a deterministic recurring rule record. The default
// is an active weekly rule on Monday at 10:00 UTC starting 2024-01-01.
type RuleFixture struct {
	ID                 string
	OrgID              string
	Name               string
	Description        string
	Location           string
	MeetingType        string
	RecurrenceType     string
	Interval           int
	DaysOfWeek         []time.Weekday
	DayOfMonth         *int
	WeekOfMonth        *string
	TimeOfDay          string
	DurationMinutes    int
	StartDate          time.Time
	EndDate            *time.Time
	OccurrenceLimit    *int
	ExcludeDates       []time.Time
	ExpectedAttendance int
	Visibility         string
	RequiredRoles      []string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RuleOption configures the generated rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns a deterministic rule fixture with optional overrides.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	id := fmt.Sprintf("rule-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RuleFixture{
		ID:                 id,
		OrgID:              "org-001",
		Name:               fmt.Sprintf("Meeting %03d", idx),
		Description:        "Recurring meeting",
		Location:           "Main Hall",
		MeetingType:        "general",
		RecurrenceType:     "weekly",
		Interval:           1,
		DaysOfWeek:         []time.Weekday{time.Monday},
		TimeOfDay:          "10:00",
		DurationMinutes:    60,
		StartDate:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ExpectedAttendance: 20,
		Visibility:         "members",
		RequiredRoles:      []string{"chair"},
		IsActive:           true,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleOrg sets the owning organization.
func WithRuleOrg(orgID string) RuleOption {
	return func(f *RuleFixture) {
		f.OrgID = orgID
	}
}

// WithRuleKind sets the stored recurrence type, such as "daily" or "monthly".
func WithRuleKind(kind string) RuleOption {
	return func(f *RuleFixture) {
		f.RecurrenceType = kind
	}
}

// WithRuleInterval sets the repeat interval.
func WithRuleInterval(interval int) RuleOption {
	return func(f *RuleFixture) {
		f.Interval = interval
	}
}

// WithRuleDaysOfWeek replaces the selected weekdays.
func WithRuleDaysOfWeek(days ...time.Weekday) RuleOption {
	return func(f *RuleFixture) {
		f.DaysOfWeek = append([]time.Weekday(nil), days...)
	}
}

// WithRuleDayOfMonth sets a fixed monthly day.
func WithRuleDayOfMonth(day int) RuleOption {
	return func(f *RuleFixture) {
		f.DayOfMonth = &day
	}
}

// WithRuleWeekOfMonth sets the monthly ordinal, "1".."5" or "last".
func WithRuleWeekOfMonth(week string) RuleOption {
	return func(f *RuleFixture) {
		f.WeekOfMonth = &week
	}
}

// WithRuleTimeOfDay sets the "HH:MM" start time.
func WithRuleTimeOfDay(hhmm string) RuleOption {
	return func(f *RuleFixture) {
		f.TimeOfDay = hhmm
	}
}

// WithRuleDuration sets the occurrence length in minutes.
func WithRuleDuration(minutes int) RuleOption {
	return func(f *RuleFixture) {
		f.DurationMinutes = minutes
	}
}

// WithRuleStartDate sets the anchor date.
func WithRuleStartDate(t time.Time) RuleOption {
	return func(f *RuleFixture) {
		f.StartDate = t
	}
}

// WithRuleEndDate sets the inclusive end bound.
func WithRuleEndDate(t time.Time) RuleOption {
	return func(f *RuleFixture) {
		f.EndDate = &t
	}
}

// WithRuleOccurrenceLimit caps the number of occurrences.
func WithRuleOccurrenceLimit(limit int) RuleOption {
	return func(f *RuleFixture) {
		f.OccurrenceLimit = &limit
	}
}

// WithRuleExcludeDates replaces the excluded calendar dates.
func WithRuleExcludeDates(dates ...time.Time) RuleOption {
	return func(f *RuleFixture) {
		f.ExcludeDates = append([]time.Time(nil), dates...)
	}
}

// WithRuleActive sets the active flag.
func WithRuleActive(active bool) RuleOption {
	return func(f *RuleFixture) {
		f.IsActive = active
	}
}

// Persistence returns the fixture as a persistence.RecurringRule value.
func (f RuleFixture) Persistence() persistence.RecurringRule {
	return persistence.RecurringRule{
		ID:                 f.ID,
		OrgID:              f.OrgID,
		Name:               f.Name,
		Description:        f.Description,
		Location:           f.Location,
		MeetingType:        f.MeetingType,
		RecurrenceType:     f.RecurrenceType,
		Interval:           f.Interval,
		DaysOfWeek:         append([]time.Weekday(nil), f.DaysOfWeek...),
		DayOfMonth:         f.DayOfMonth,
		WeekOfMonth:        f.WeekOfMonth,
		TimeOfDay:          f.TimeOfDay,
		DurationMinutes:    f.DurationMinutes,
		StartDate:          f.StartDate,
		EndDate:            f.EndDate,
		OccurrenceLimit:    f.OccurrenceLimit,
		ExcludeDates:       append([]time.Time(nil), f.ExcludeDates...),
		ExpectedAttendance: f.ExpectedAttendance,
		Visibility:         f.Visibility,
		RequiredRoles:      append([]string(nil), f.RequiredRoles...),
		IsActive:           f.IsActive,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event, optionally generated by a rule.
type EventFixture struct {
	ID              string
	OrgID           string
	Name            string
	Start           time.Time
	End             time.Time
	RecurringRuleID *string
	MeetingType     string
	CreatedAt       time.Time
	DeletedAt       *time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic one-hour event with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour).Truncate(time.Hour)
	fixture := EventFixture{
		ID:          fmt.Sprintf("event-%03d", idx),
		OrgID:       "org-001",
		Name:        fmt.Sprintf("Event %03d", idx),
		Start:       start,
		End:         start.Add(time.Hour),
		MeetingType: "general",
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventOrg sets the owning organization.
func WithEventOrg(orgID string) EventOption {
	return func(f *EventFixture) {
		f.OrgID = orgID
	}
}

// WithEventWindow sets the start and end instants.
func WithEventWindow(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventRule links the event to the rule that generated it.
func WithEventRule(ruleID string) EventOption {
	return func(f *EventFixture) {
		f.RecurringRuleID = &ruleID
	}
}

// WithEventDeletedAt marks the event as soft deleted.
func WithEventDeletedAt(t time.Time) EventOption {
	return func(f *EventFixture) {
		f.DeletedAt = &t
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	event := persistence.Event{
		ID:                  f.ID,
		OrgID:               f.OrgID,
		Name:                f.Name,
		Start:               f.Start,
		End:                 f.End,
		Status:              persistence.EventStatusNotApplicable,
		RegistrationEnabled: true,
		CheckInEnabled:      true,
		Visibility:          "members",
		RecurringRuleID:     f.RecurringRuleID,
		MeetingType:         f.MeetingType,
		CreatedAt:           f.CreatedAt,
		DeletedAt:           f.DeletedAt,
	}
	if f.RecurringRuleID != nil {
		event.Metadata = map[string]string{
			persistence.MetadataRecurringRuleID: *f.RecurringRuleID,
			persistence.MetadataMeetingType:     f.MeetingType,
		}
	}
	return event
}
