package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "recurrence.db")
	storage, err := Open(migration.TempFileTestSQLiteConfig(dsn))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return storage
}

func strPtr(s string) *string { return &s }

func testEvent(id string, start time.Time) persistence.Event {
	return persistence.Event{
		ID:                  id,
		OrgID:               "org-1",
		Name:                "Weekly sync",
		Description:         "Team sync",
		Location:            "Room A",
		Start:               start,
		End:                 start.Add(time.Hour),
		Status:              persistence.EventStatusNotApplicable,
		RegistrationEnabled: true,
		CheckInEnabled:      true,
		ExpectedAttendance:  12,
		Visibility:          "members",
		RecurringRuleID:     strPtr("rule-1"),
		MeetingType:         "board",
		Metadata: map[string]string{
			persistence.MetadataRecurringRuleID: "rule-1",
			persistence.MetadataMeetingType:     "board",
		},
		CreatedAt: start.Add(-24 * time.Hour),
	}
}

func TestStorage_MigrateIsRepeatable(t *testing.T) {
	storage := newTestStorage(t)

	if err := storage.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := storage.Pool().Ping(context.Background()); err != nil {
		t.Fatalf("ping after migrate failed: %v", err)
	}
}

func TestRuleRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	jst := time.FixedZone("JST", 9*60*60)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, jst)
	end := start.AddDate(0, 6, 0)
	limit := 10
	week := "last"
	rule := persistence.RecurringRule{
		ID:                 "rule-1",
		OrgID:              "org-1",
		Name:               "Board meeting",
		Description:        "Monthly board meeting",
		Location:           "HQ",
		MeetingType:        "board",
		RecurrenceType:     "Monthly",
		Interval:           1,
		DaysOfWeek:         []time.Weekday{time.Friday, time.Monday},
		WeekOfMonth:        &week,
		TimeOfDay:          "18:30",
		DurationMinutes:    90,
		StartDate:          start,
		EndDate:            &end,
		OccurrenceLimit:    &limit,
		ExcludeDates:       []time.Time{time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC)},
		ExpectedAttendance: 8,
		Visibility:         "members",
		RequiredRoles:      []string{"chair", "secretary"},
		IsActive:           true,
	}

	if err := storage.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}

	fetched, err := storage.GetRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if fetched.RecurrenceType != "monthly" {
		t.Fatalf("expected normalized recurrence type, got %q", fetched.RecurrenceType)
	}
	if len(fetched.DaysOfWeek) != 2 || fetched.DaysOfWeek[0] != time.Friday {
		t.Fatalf("expected weekday order to be preserved, got %v", fetched.DaysOfWeek)
	}
	if fetched.WeekOfMonth == nil || *fetched.WeekOfMonth != "last" {
		t.Fatalf("unexpected week of month: %v", fetched.WeekOfMonth)
	}
	if fetched.DayOfMonth != nil {
		t.Fatalf("expected nil day of month, got %v", *fetched.DayOfMonth)
	}
	if !fetched.StartDate.Equal(start) || fetched.EndDate == nil || !fetched.EndDate.Equal(end) {
		t.Fatalf("unexpected bounds: %s - %v", fetched.StartDate, fetched.EndDate)
	}
	if fetched.OccurrenceLimit == nil || *fetched.OccurrenceLimit != 10 {
		t.Fatalf("unexpected occurrence limit: %v", fetched.OccurrenceLimit)
	}
	if len(fetched.ExcludeDates) != 1 || fetched.ExcludeDates[0].Day() != 29 {
		t.Fatalf("unexpected exclude dates: %v", fetched.ExcludeDates)
	}
	if len(fetched.RequiredRoles) != 2 || fetched.RequiredRoles[1] != "secretary" {
		t.Fatalf("unexpected roles: %v", fetched.RequiredRoles)
	}

	originalCreatedAt := fetched.CreatedAt
	rule.Name = "Board meeting (renamed)"
	rule.CreatedAt = originalCreatedAt.Add(time.Hour)
	if err := storage.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("UpsertRule update failed: %v", err)
	}
	updated, err := storage.GetRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetRule after update failed: %v", err)
	}
	if updated.Name != "Board meeting (renamed)" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}
	if !updated.CreatedAt.Equal(originalCreatedAt) {
		t.Fatalf("expected created_at to be preserved, got %s want %s", updated.CreatedAt, originalCreatedAt)
	}

	inactive := rule
	inactive.ID = "rule-2"
	inactive.IsActive = false
	if err := storage.UpsertRule(ctx, inactive); err != nil {
		t.Fatalf("UpsertRule inactive failed: %v", err)
	}

	active, err := storage.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "rule-1" {
		t.Fatalf("expected only rule-1 to be active, got %+v", active)
	}

	if err := storage.DeactivateRule(ctx, "rule-1"); err != nil {
		t.Fatalf("DeactivateRule failed: %v", err)
	}
	active, err = storage.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active rules, got %d", len(active))
	}

	if _, err := storage.GetRule(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := storage.DeactivateRule(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := rule
	bad.ID = "rule-3"
	bad.RecurrenceType = "yearly"
	if err := storage.UpsertRule(ctx, bad); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown recurrence type, got %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	start := time.Date(2024, time.January, 1, 5, 0, 0, 0, time.UTC)
	event := testEvent("event-1", start)
	if err := storage.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	found, err := storage.FindOccurrence(ctx, "org-1", "rule-1", start.In(time.FixedZone("JST", 9*60*60)))
	if err != nil {
		t.Fatalf("FindOccurrence failed: %v", err)
	}
	if found.ID != "event-1" || !found.Start.Equal(start) || !found.End.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected event: %+v", found)
	}
	if found.Metadata[persistence.MetadataRecurringRuleID] != "rule-1" {
		t.Fatalf("expected metadata back-reference, got %v", found.Metadata)
	}
	if !found.RegistrationEnabled || !found.CheckInEnabled || found.Status != persistence.EventStatusNotApplicable {
		t.Fatalf("unexpected flags: %+v", found)
	}

	if _, err := storage.FindOccurrence(ctx, "org-2", "rule-1", start); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other org, got %v", err)
	}
	if _, err := storage.FindOccurrence(ctx, "org-1", "rule-1", start.Add(time.Minute)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other start, got %v", err)
	}

	duplicate := testEvent("event-2", start)
	if err := storage.CreateEvent(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second live occurrence, got %v", err)
	}

	if err := storage.SoftDeleteEvent(ctx, "event-1", start); err != nil {
		t.Fatalf("SoftDeleteEvent failed: %v", err)
	}
	if _, err := storage.FindOccurrence(ctx, "org-1", "rule-1", start); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected deleted occurrence to be hidden, got %v", err)
	}
	if err := storage.CreateEvent(ctx, duplicate); err != nil {
		t.Fatalf("expected slot to be free after soft delete, got %v", err)
	}

	deleted, err := storage.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Fatal("expected deleted_at to be set")
	}

	if err := storage.CreateEvent(ctx, testEvent("event-3", start.AddDate(0, 0, 7))); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	live, err := storage.ListEvents(ctx, persistence.EventFilter{OrgID: "org-1"})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(live) != 2 || live[0].ID != "event-2" || live[1].ID != "event-3" {
		t.Fatalf("unexpected live events: %+v", live)
	}

	after := start.AddDate(0, 0, 1)
	later, err := storage.ListEvents(ctx, persistence.EventFilter{OrgID: "org-1", StartsAfter: &after, RecurringRuleID: strPtr("rule-1")})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(later) != 1 || later[0].ID != "event-3" {
		t.Fatalf("unexpected filtered events: %+v", later)
	}

	all, err := storage.ListEvents(ctx, persistence.EventFilter{OrgID: "org-1", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events including deleted, got %d", len(all))
	}

	invalid := testEvent("event-4", start)
	invalid.End = start.Add(-time.Minute)
	if err := storage.CreateEvent(ctx, invalid); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestMeetingConfigAndAgendaRepositories(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	start := time.Date(2024, time.February, 5, 5, 0, 0, 0, time.UTC)
	if err := storage.CreateEvent(ctx, testEvent("event-1", start)); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	config := persistence.MeetingConfig{
		ID:            "config-1",
		EventID:       "event-1",
		OrgID:         "org-1",
		MeetingType:   "board",
		RequiredRoles: []string{"chair"},
		Reminders:     persistence.DefaultReminderPolicy(),
		CreatedAt:     start,
	}
	if err := storage.CreateMeetingConfig(ctx, config); err != nil {
		t.Fatalf("CreateMeetingConfig failed: %v", err)
	}

	fetched, err := storage.GetMeetingConfigByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetMeetingConfigByEvent failed: %v", err)
	}
	if fetched.Reminders.LeadTime != 24*time.Hour || !fetched.Reminders.Enabled {
		t.Fatalf("unexpected reminder policy: %+v", fetched.Reminders)
	}
	if len(fetched.Reminders.Channels) != 2 || fetched.Reminders.Channels[0] != "in_app" {
		t.Fatalf("unexpected channels: %v", fetched.Reminders.Channels)
	}

	config.ID = "config-2"
	if err := storage.CreateMeetingConfig(ctx, config); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second config, got %v", err)
	}

	orphan := config
	orphan.ID = "config-3"
	orphan.EventID = "missing"
	if err := storage.CreateMeetingConfig(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	if _, err := storage.FindAgendaByEvent(ctx, "event-1", "org-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before agenda creation, got %v", err)
	}

	agenda := persistence.Agenda{ID: "agenda-1", EventID: "event-1", OrgID: "org-1", CreatedAt: start}
	if err := storage.CreateAgenda(ctx, agenda); err != nil {
		t.Fatalf("CreateAgenda failed: %v", err)
	}
	found, err := storage.FindAgendaByEvent(ctx, "event-1", "org-1")
	if err != nil {
		t.Fatalf("FindAgendaByEvent failed: %v", err)
	}
	if found.ID != "agenda-1" || len(found.Items) != 0 {
		t.Fatalf("unexpected agenda: %+v", found)
	}
	if _, err := storage.FindAgendaByEvent(ctx, "event-1", "org-2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other org, got %v", err)
	}
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	tests := []struct {
		message string
		want    error
	}{
		{message: "constraint failed: UNIQUE constraint failed: events.id (2067)", want: persistence.ErrDuplicate},
		{message: "constraint failed: FOREIGN KEY constraint failed (787)", want: persistence.ErrForeignKeyViolation},
		{message: "constraint failed: CHECK constraint failed: interval_value > 0 (275)", want: persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		if got := mapper.MapError(errors.New(tt.message)); !errors.Is(got, tt.want) {
			t.Fatalf("MapError(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}

	plain := errors.New("disk I/O error")
	if got := mapper.MapError(plain); got != plain {
		t.Fatalf("expected unknown errors to pass through, got %v", got)
	}
}

func TestRetryHelper_WithRetry(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2})

	attempts := 0
	err := helper.WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success on third attempt, got err=%v attempts=%d", err, attempts)
	}

	attempts = 0
	err = helper.WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("UNIQUE constraint failed: events.id")
	})
	if !errors.Is(err, persistence.ErrDuplicate) || attempts != 1 {
		t.Fatalf("expected single attempt with ErrDuplicate, got err=%v attempts=%d", err, attempts)
	}
}
