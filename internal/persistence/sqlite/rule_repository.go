package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const ruleColumns = `
	id, org_id, name, description, location, meeting_type, recurrence_type,
	interval_value, days_of_week, day_of_month, week_of_month, time_of_day,
	duration_minutes, start_date, end_date, occurrence_limit, exclude_dates,
	expected_attendance, visibility, required_roles, is_active, created_at, updated_at
`

// RuleRepository implements persistence.RecurringRuleRepository using SQLite.
type RuleRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRuleRepository creates a new SQLite recurring rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// UpsertRule creates or replaces a rule, keeping the original created_at.
func (r *RuleRepository) UpsertRule(ctx context.Context, rule persistence.RecurringRule) error {
	if rule.ID == "" || rule.OrgID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	daysOfWeek, err := encodeWeekdays(rule.DaysOfWeek)
	if err != nil {
		return err
	}
	excludeDates, err := encodeDates(rule.ExcludeDates)
	if err != nil {
		return err
	}
	requiredRoles, err := encodeJSON(rule.RequiredRoles, "[]")
	if err != nil {
		return err
	}

	now := r.now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}
	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existingCreatedAt string
		err := tx.QueryRowContext(ctx, "SELECT created_at FROM recurring_rules WHERE id = ?", rule.ID).Scan(&existingCreatedAt)
		switch {
		case err == nil:
			if rule.CreatedAt, err = parseTime("created_at", existingCreatedAt); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return r.mapper.MapError(err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recurring_rules (`+ruleColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				org_id = excluded.org_id,
				name = excluded.name,
				description = excluded.description,
				location = excluded.location,
				meeting_type = excluded.meeting_type,
				recurrence_type = excluded.recurrence_type,
				interval_value = excluded.interval_value,
				days_of_week = excluded.days_of_week,
				day_of_month = excluded.day_of_month,
				week_of_month = excluded.week_of_month,
				time_of_day = excluded.time_of_day,
				duration_minutes = excluded.duration_minutes,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				occurrence_limit = excluded.occurrence_limit,
				exclude_dates = excluded.exclude_dates,
				expected_attendance = excluded.expected_attendance,
				visibility = excluded.visibility,
				required_roles = excluded.required_roles,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at
		`,
			rule.ID,
			rule.OrgID,
			rule.Name,
			rule.Description,
			rule.Location,
			rule.MeetingType,
			strings.ToLower(rule.RecurrenceType),
			interval,
			daysOfWeek,
			nullInt(rule.DayOfMonth),
			nullString(rule.WeekOfMonth),
			rule.TimeOfDay,
			rule.DurationMinutes,
			formatTime(rule.StartDate),
			nullTime(rule.EndDate),
			nullInt(rule.OccurrenceLimit),
			excludeDates,
			rule.ExpectedAttendance,
			rule.Visibility,
			requiredRoles,
			boolToInt(rule.IsActive),
			formatTime(rule.CreatedAt),
			formatTime(rule.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// GetRule returns the rule with id.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.RecurringRule, error) {
	if id == "" {
		return persistence.RecurringRule{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM recurring_rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if err != nil {
		return persistence.RecurringRule{}, r.mapper.MapError(err)
	}
	return rule, nil
}

// ListActiveRules returns active rules ordered by organization and creation time.
func (r *RuleRepository) ListActiveRules(ctx context.Context) ([]persistence.RecurringRule, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM recurring_rules WHERE is_active = 1 ORDER BY org_id ASC, created_at ASC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []persistence.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rules, nil
}

// DeactivateRule stops a rule from being expanded.
func (r *RuleRepository) DeactivateRule(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		"UPDATE recurring_rules SET is_active = 0, updated_at = ? WHERE id = ?",
		formatTime(r.now()), id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (persistence.RecurringRule, error) {
	var (
		rule                            persistence.RecurringRule
		daysOfWeek, excludeDates, roles string
		startDate, createdAt, updatedAt string
		dayOfMonth, occurrenceLimit     sql.NullInt64
		weekOfMonth, endDate            sql.NullString
		isActive                        int
	)

	err := row.Scan(
		&rule.ID,
		&rule.OrgID,
		&rule.Name,
		&rule.Description,
		&rule.Location,
		&rule.MeetingType,
		&rule.RecurrenceType,
		&rule.Interval,
		&daysOfWeek,
		&dayOfMonth,
		&weekOfMonth,
		&rule.TimeOfDay,
		&rule.DurationMinutes,
		&startDate,
		&endDate,
		&occurrenceLimit,
		&excludeDates,
		&rule.ExpectedAttendance,
		&rule.Visibility,
		&roles,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.RecurringRule{}, err
	}

	rule.DayOfMonth = intFromNull(dayOfMonth)
	rule.WeekOfMonth = stringFromNull(weekOfMonth)
	rule.OccurrenceLimit = intFromNull(occurrenceLimit)
	rule.IsActive = isActive != 0

	if rule.DaysOfWeek, err = decodeWeekdays("days_of_week", daysOfWeek); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.ExcludeDates, err = decodeDates("exclude_dates", excludeDates); err != nil {
		return persistence.RecurringRule{}, err
	}
	if err = decodeJSON("required_roles", roles, &rule.RequiredRoles); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.StartDate, err = parseTime("start_date", startDate); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.EndDate, err = parseNullTime("end_date", endDate); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.RecurringRule{}, err
	}
	if rule.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.RecurringRule{}, err
	}
	return rule, nil
}

func validateRule(rule persistence.RecurringRule) error {
	if rule.EndDate != nil && rule.EndDate.Before(rule.StartDate) {
		return persistence.ErrConstraintViolation
	}
	if rule.OccurrenceLimit != nil && *rule.OccurrenceLimit < 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}
