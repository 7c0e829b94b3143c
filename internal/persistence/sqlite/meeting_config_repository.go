package sqlite

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// MeetingConfigRepository implements persistence.MeetingConfigRepository using SQLite.
type MeetingConfigRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewMeetingConfigRepository creates a new SQLite meeting configuration repository.
func NewMeetingConfigRepository(pool *ConnectionPool) *MeetingConfigRepository {
	return &MeetingConfigRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateMeetingConfig inserts config. The referenced event must exist and
// must not have a configuration yet.
func (r *MeetingConfigRepository) CreateMeetingConfig(ctx context.Context, config persistence.MeetingConfig) error {
	if config.ID == "" || config.EventID == "" {
		return persistence.ErrConstraintViolation
	}
	roles, err := encodeJSON(config.RequiredRoles, "[]")
	if err != nil {
		return err
	}
	channels, err := encodeJSON(config.Reminders.Channels, "[]")
	if err != nil {
		return err
	}
	if config.CreatedAt.IsZero() {
		config.CreatedAt = r.now()
	}

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, `
			INSERT INTO meeting_configs
			(id, event_id, org_id, meeting_type, required_roles, reminders_enabled, reminder_lead_minutes, reminder_channels, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			config.ID,
			config.EventID,
			config.OrgID,
			config.MeetingType,
			roles,
			boolToInt(config.Reminders.Enabled),
			int64(config.Reminders.LeadTime/time.Minute),
			channels,
			formatTime(config.CreatedAt),
		)
		return err
	})
}

// GetMeetingConfigByEvent returns the configuration attached to eventID.
func (r *MeetingConfigRepository) GetMeetingConfigByEvent(ctx context.Context, eventID string) (persistence.MeetingConfig, error) {
	var (
		config          persistence.MeetingConfig
		roles, channels string
		createdAt       string
		enabled         int
		leadMinutes     int64
	)

	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, event_id, org_id, meeting_type, required_roles, reminders_enabled, reminder_lead_minutes, reminder_channels, created_at
		FROM meeting_configs
		WHERE event_id = ?
	`, eventID).Scan(
		&config.ID,
		&config.EventID,
		&config.OrgID,
		&config.MeetingType,
		&roles,
		&enabled,
		&leadMinutes,
		&channels,
		&createdAt,
	)
	if err != nil {
		return persistence.MeetingConfig{}, r.mapper.MapError(err)
	}

	config.Reminders.Enabled = enabled != 0
	config.Reminders.LeadTime = time.Duration(leadMinutes) * time.Minute
	if err = decodeJSON("required_roles", roles, &config.RequiredRoles); err != nil {
		return persistence.MeetingConfig{}, err
	}
	if err = decodeJSON("reminder_channels", channels, &config.Reminders.Channels); err != nil {
		return persistence.MeetingConfig{}, err
	}
	if config.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.MeetingConfig{}, err
	}
	return config, nil
}
