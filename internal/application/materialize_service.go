package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/recurrence"
)

// EventStore captures the event operations needed by materialization.
type EventStore interface {
	FindOccurrence(ctx context.Context, orgID, ruleID string, start time.Time) (persistence.Event, error)
	CreateEvent(ctx context.Context, event persistence.Event) error
}

// MeetingConfigStore creates the one-to-one meeting configuration of an event.
type MeetingConfigStore interface {
	CreateMeetingConfig(ctx context.Context, config persistence.MeetingConfig) error
}

// AgendaStore exposes agenda lookups and creation.
type AgendaStore interface {
	FindAgendaByEvent(ctx context.Context, eventID, orgID string) (persistence.Agenda, error)
	CreateAgenda(ctx context.Context, agenda persistence.Agenda) error
}

// RuleStore loads stored recurring rules.
type RuleStore interface {
	GetRule(ctx context.Context, id string) (persistence.RecurringRule, error)
	ListActiveRules(ctx context.Context) ([]persistence.RecurringRule, error)
}

// MaterializeService turns recurring rules into concrete events, creating
// each (rule, start) occurrence at most once.
type MaterializeService struct {
	events      EventStore
	configs     MeetingConfigStore
	agendas     AgendaStore
	rules       RuleStore
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterializeService wires dependencies for materialization.
func NewMaterializeService(events EventStore, configs MeetingConfigStore, agendas AgendaStore, rules RuleStore, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *MaterializeService {
	return NewMaterializeServiceWithLogger(events, configs, agendas, rules, engine, idGenerator, now, nil)
}

// NewMaterializeServiceWithLogger constructs a MaterializeService with a specified logger.
func NewMaterializeServiceWithLogger(events EventStore, configs MeetingConfigStore, agendas AgendaStore, rules RuleStore, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MaterializeService {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MaterializeService{
		events:      events,
		configs:     configs,
		agendas:     agendas,
		rules:       rules,
		engine:      engine,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MaterializeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaterializeService", operation, attrs...)
}

// Materialize expands rule and persists every occurrence that has no live
// event yet, strictly in ascending order. It returns only the events created
// by this call.
//
// A failed existence check, event write or meeting configuration write stops
// the loop and returns the events created so far together with a
// *MaterializeError; nothing is rolled back, and calling again with the same
// window resumes where the failed call stopped. Agenda failures never stop
// the loop and are reported as warnings.
func (s *MaterializeService) Materialize(ctx context.Context, rule persistence.RecurringRule, opts MaterializeOptions) ([]persistence.Event, []AgendaWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("MaterializeService is nil")
	}
	if s.events == nil || s.configs == nil {
		return nil, nil, fmt.Errorf("MaterializeService requires event and meeting config stores")
	}

	from := opts.From
	if from.IsZero() {
		from = s.now()
	}
	maxOccurrences := opts.MaxOccurrences
	if maxOccurrences <= 0 {
		maxOccurrences = recurrence.DefaultMaxOccurrences
	}

	logger := s.loggerWith(ctx, "Materialize",
		"rule_id", rule.ID,
		"org_id", rule.OrgID,
		"from", from,
		"max_occurrences", maxOccurrences,
	)
	started := time.Now()
	defer func() {
		materializeDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	spec, err := RecurrenceRule(rule)
	if err != nil {
		materializeErrorsTotal.WithLabelValues(string(StageGenerate)).Inc()
		logger.ErrorContext(ctx, "invalid recurring rule", "error", err, "error_kind", ErrorKind(err))
		return nil, nil, &MaterializeError{RuleID: rule.ID, Stage: StageGenerate, Err: err}
	}

	starts, err := s.engine.Generate(spec, from, maxOccurrences)
	if err != nil {
		materializeErrorsTotal.WithLabelValues(string(StageGenerate)).Inc()
		logger.ErrorContext(ctx, "occurrence generation failed", "error", err, "error_kind", ErrorKind(err))
		return nil, nil, &MaterializeError{RuleID: rule.ID, Stage: StageGenerate, Err: err}
	}

	var (
		created  []persistence.Event
		warnings []AgendaWarning
		skipped  int
	)
	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return created, warnings, s.fail(ctx, logger, rule, start, StageLookup, err)
		}
		end := start.Add(spec.Duration())

		_, err := s.events.FindOccurrence(ctx, rule.OrgID, rule.ID, start)
		switch {
		case err == nil:
			skipped++
			occurrencesSkippedTotal.WithLabelValues("existing").Inc()
			continue
		case !errors.Is(err, persistence.ErrNotFound):
			return created, warnings, s.fail(ctx, logger, rule, start, StageLookup, err)
		}

		event := s.newEvent(rule, start, end)
		if err := s.events.CreateEvent(ctx, event); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				// Another expansion inserted this occurrence after our lookup.
				skipped++
				occurrencesSkippedTotal.WithLabelValues("duplicate").Inc()
				logger.DebugContext(ctx, "occurrence created concurrently", "start", start)
				continue
			}
			return created, warnings, s.fail(ctx, logger, rule, start, StageCreateEvent, err)
		}

		config := persistence.MeetingConfig{
			ID:            s.idGenerator(),
			EventID:       event.ID,
			OrgID:         rule.OrgID,
			MeetingType:   rule.MeetingType,
			RequiredRoles: append([]string(nil), rule.RequiredRoles...),
			Reminders:     persistence.DefaultReminderPolicy(),
			CreatedAt:     event.CreatedAt,
		}
		if err := s.configs.CreateMeetingConfig(ctx, config); err != nil {
			return created, warnings, s.fail(ctx, logger, rule, start, StageCreateConfig, err)
		}

		if err := s.ensureAgenda(ctx, event); err != nil {
			agendaFailuresTotal.Inc()
			logger.WarnContext(ctx, "agenda creation failed",
				"event_id", event.ID,
				"start", start,
				"error", err,
				"error_kind", ErrorKind(err),
			)
			warnings = append(warnings, AgendaWarning{EventID: event.ID, Start: start, Err: err})
		}

		occurrencesCreatedTotal.WithLabelValues(spec.Kind.String()).Inc()
		created = append(created, event)
	}

	logger.InfoContext(ctx, "rule materialized",
		"generated", len(starts),
		"created", len(created),
		"skipped", skipped,
		"agenda_warnings", len(warnings),
	)
	return created, warnings, nil
}

// MaterializeRule loads the stored rule ruleID and materializes it.
func (s *MaterializeService) MaterializeRule(ctx context.Context, ruleID string, opts MaterializeOptions) ([]persistence.Event, []AgendaWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("MaterializeService is nil")
	}
	if s.rules == nil {
		return nil, nil, fmt.Errorf("MaterializeService requires a rule store")
	}

	rule, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if !rule.IsActive {
		return nil, nil, ErrInactiveRule
	}
	return s.Materialize(ctx, rule, opts)
}

// ActiveRules lists the rules a trigger should expand.
func (s *MaterializeService) ActiveRules(ctx context.Context) ([]persistence.RecurringRule, error) {
	if s == nil || s.rules == nil {
		return nil, fmt.Errorf("MaterializeService requires a rule store")
	}
	return s.rules.ListActiveRules(ctx)
}

func (s *MaterializeService) newEvent(rule persistence.RecurringRule, start, end time.Time) persistence.Event {
	ruleID := rule.ID
	return persistence.Event{
		ID:                  s.idGenerator(),
		OrgID:               rule.OrgID,
		Name:                rule.Name,
		Description:         rule.Description,
		Location:            rule.Location,
		Start:               start,
		End:                 end,
		Status:              persistence.EventStatusNotApplicable,
		RegistrationEnabled: true,
		CheckInEnabled:      true,
		ExpectedAttendance:  rule.ExpectedAttendance,
		Visibility:          rule.Visibility,
		RecurringRuleID:     &ruleID,
		MeetingType:         rule.MeetingType,
		Metadata: map[string]string{
			persistence.MetadataRecurringRuleID: rule.ID,
			persistence.MetadataMeetingType:     rule.MeetingType,
		},
		CreatedAt: s.now(),
	}
}

func (s *MaterializeService) ensureAgenda(ctx context.Context, event persistence.Event) error {
	if s.agendas == nil {
		return nil
	}
	_, err := s.agendas.FindAgendaByEvent(ctx, event.ID, event.OrgID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	return s.agendas.CreateAgenda(ctx, persistence.Agenda{
		ID:        s.idGenerator(),
		EventID:   event.ID,
		OrgID:     event.OrgID,
		Items:     []persistence.AgendaItem{},
		CreatedAt: event.CreatedAt,
	})
}

func (s *MaterializeService) fail(ctx context.Context, logger *slog.Logger, rule persistence.RecurringRule, start time.Time, stage Stage, err error) error {
	materializeErrorsTotal.WithLabelValues(string(stage)).Inc()
	logger.ErrorContext(ctx, "materialization aborted",
		"start", start,
		"stage", string(stage),
		"error", err,
		"error_kind", ErrorKind(err),
	)
	return &MaterializeError{RuleID: rule.ID, Start: start, Stage: stage, Err: err}
}
