package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const eventColumns = `
	id, org_id, name, description, location, start_time, end_time, status,
	registration_enabled, check_in_enabled, expected_attendance, visibility,
	recurring_rule_id, meeting_type, metadata, created_at, deleted_at
`

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateEvent inserts event. A second live event for the same organization,
// rule and start time is rejected with persistence.ErrDuplicate.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.OrgID == "" {
		return persistence.ErrConstraintViolation
	}
	if event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}
	metadata, err := encodeJSON(event.Metadata, "{}")
	if err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			event.ID,
			event.OrgID,
			event.Name,
			event.Description,
			event.Location,
			formatTime(event.Start),
			formatTime(event.End),
			event.Status,
			boolToInt(event.RegistrationEnabled),
			boolToInt(event.CheckInEnabled),
			event.ExpectedAttendance,
			event.Visibility,
			nullString(event.RecurringRuleID),
			event.MeetingType,
			metadata,
			formatTime(event.CreatedAt),
			nullTime(event.DeletedAt),
		)
		return err
	})
}

// GetEvent returns the event with id, deleted or not.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	row := r.pool.DB().QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// FindOccurrence looks up the live event generated by ruleID at start.
func (r *EventRepository) FindOccurrence(ctx context.Context, orgID, ruleID string, start time.Time) (persistence.Event, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE org_id = ? AND recurring_rule_id = ? AND start_time = ? AND deleted_at IS NULL
		LIMIT 1
	`, orgID, ruleID, formatTime(start))
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns events matching filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := buildEventListQuery(filter)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// SoftDeleteEvent marks an event deleted, freeing its occurrence slot.
func (r *EventRepository) SoftDeleteEvent(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx,
		"UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		formatTime(deletedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.OrgID != "" {
		conditions = append(conditions, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.RecurringRuleID != nil {
		conditions = append(conditions, "recurring_rule_id = ?")
		args = append(args, *filter.RecurringRuleID)
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	return query, args
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                 persistence.Event
		start, end, createdAt string
		metadata              string
		registration, checkIn int
		recurringRuleID       sql.NullString
		deletedAt             sql.NullString
	)

	err := row.Scan(
		&event.ID,
		&event.OrgID,
		&event.Name,
		&event.Description,
		&event.Location,
		&start,
		&end,
		&event.Status,
		&registration,
		&checkIn,
		&event.ExpectedAttendance,
		&event.Visibility,
		&recurringRuleID,
		&event.MeetingType,
		&metadata,
		&createdAt,
		&deletedAt,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	event.RegistrationEnabled = registration != 0
	event.CheckInEnabled = checkIn != 0
	event.RecurringRuleID = stringFromNull(recurringRuleID)

	if err = decodeJSON("metadata", metadata, &event.Metadata); err != nil {
		return persistence.Event{}, err
	}
	if event.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime("end_time", end); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.DeletedAt, err = parseNullTime("deleted_at", deletedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
