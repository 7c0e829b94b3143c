package persistence

import "time"

// EventStatusNotApplicable marks events that skip the approval workflow.
const EventStatusNotApplicable = "not-applicable"

// Metadata keys stamped on events generated from a recurring rule.
const (
	MetadataRecurringRuleID = "recurringRuleId"
	MetadataMeetingType     = "meetingType"
)

// RecurringRule is a stored recurring meeting definition.
type RecurringRule struct {
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

// Event is a concrete calendar event owned by an organization.
type Event struct {
	ID                  string
	OrgID               string
	Name                string
	Description         string
	Location            string
	Start               time.Time
	End                 time.Time
	Status              string
	RegistrationEnabled bool
	CheckInEnabled      bool
	ExpectedAttendance  int
	Visibility          string
	RecurringRuleID     *string
	MeetingType         string
	Metadata            map[string]string
	CreatedAt           time.Time
	DeletedAt           *time.Time
}

// ReminderPolicy controls reminders sent ahead of a meeting.
type ReminderPolicy struct {
	Enabled  bool
	LeadTime time.Duration
	Channels []string
}

// DefaultReminderPolicy is applied to meeting configurations of generated events.
func DefaultReminderPolicy() ReminderPolicy {
	return ReminderPolicy{
		Enabled:  true,
		LeadTime: 24 * time.Hour,
		Channels: []string{"in_app", "email"},
	}
}

// MeetingConfig holds meeting specific settings, one per event.
type MeetingConfig struct {
	ID            string
	EventID       string
	OrgID         string
	MeetingType   string
	RequiredRoles []string
	Reminders     ReminderPolicy
	CreatedAt     time.Time
}

// AgendaItem is a single entry of a meeting agenda.
type AgendaItem struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
	Presenter       string `json:"presenter,omitempty"`
}

// Agenda is the agenda of an event, at most one per event.
type Agenda struct {
	ID        string
	EventID   string
	OrgID     string
	Items     []AgendaItem
	CreatedAt time.Time
}
