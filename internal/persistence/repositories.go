package persistence

import (
	"context"
	"time"
)

// RecurringRuleRepository stores recurring meeting rules.
type RecurringRuleRepository interface {
	UpsertRule(ctx context.Context, rule RecurringRule) error
	GetRule(ctx context.Context, id string) (RecurringRule, error)
	ListActiveRules(ctx context.Context) ([]RecurringRule, error)
	DeactivateRule(ctx context.Context, id string) error
}

// EventFilter narrows event listings.
type EventFilter struct {
	OrgID           string
	RecurringRuleID *string
	StartsAfter     *time.Time
	StartsBefore    *time.Time
	IncludeDeleted  bool
}

// EventRepository stores events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	// FindOccurrence returns the non-deleted event generated by ruleID for
	// orgID starting exactly at start, or ErrNotFound.
	FindOccurrence(ctx context.Context, orgID, ruleID string, start time.Time) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	SoftDeleteEvent(ctx context.Context, id string, deletedAt time.Time) error
}

// MeetingConfigRepository stores meeting configurations.
type MeetingConfigRepository interface {
	CreateMeetingConfig(ctx context.Context, config MeetingConfig) error
	GetMeetingConfigByEvent(ctx context.Context, eventID string) (MeetingConfig, error)
}

// AgendaRepository stores agendas.
type AgendaRepository interface {
	CreateAgenda(ctx context.Context, agenda Agenda) error
	// FindAgendaByEvent returns the agenda of eventID within orgID, or ErrNotFound.
	FindAgendaByEvent(ctx context.Context, eventID, orgID string) (Agenda, error)
}
