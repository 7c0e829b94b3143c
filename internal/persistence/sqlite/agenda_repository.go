package sqlite

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// AgendaRepository implements persistence.AgendaRepository using SQLite.
type AgendaRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	now    func() time.Time
}

// NewAgendaRepository creates a new SQLite agenda repository.
func NewAgendaRepository(pool *ConnectionPool) *AgendaRepository {
	return &AgendaRepository{pool: pool, mapper: NewErrorMapper(), now: time.Now}
}

// CreateAgenda inserts agenda; an event holds at most one.
func (r *AgendaRepository) CreateAgenda(ctx context.Context, agenda persistence.Agenda) error {
	if agenda.ID == "" || agenda.EventID == "" {
		return persistence.ErrConstraintViolation
	}
	items, err := encodeJSON(agenda.Items, "[]")
	if err != nil {
		return err
	}
	if agenda.CreatedAt.IsZero() {
		agenda.CreatedAt = r.now()
	}

	_, err = r.pool.DB().ExecContext(ctx,
		"INSERT INTO agendas (id, event_id, org_id, items, created_at) VALUES (?, ?, ?, ?, ?)",
		agenda.ID, agenda.EventID, agenda.OrgID, items, formatTime(agenda.CreatedAt))
	return r.mapper.MapError(err)
}

// FindAgendaByEvent returns the agenda of eventID within orgID.
func (r *AgendaRepository) FindAgendaByEvent(ctx context.Context, eventID, orgID string) (persistence.Agenda, error) {
	var (
		agenda           persistence.Agenda
		items, createdAt string
	)
	err := r.pool.DB().QueryRowContext(ctx,
		"SELECT id, event_id, org_id, items, created_at FROM agendas WHERE event_id = ? AND org_id = ?",
		eventID, orgID,
	).Scan(&agenda.ID, &agenda.EventID, &agenda.OrgID, &items, &createdAt)
	if err != nil {
		return persistence.Agenda{}, r.mapper.MapError(err)
	}

	if err = decodeJSON("items", items, &agenda.Items); err != nil {
		return persistence.Agenda{}, err
	}
	if agenda.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Agenda{}, err
	}
	return agenda, nil
}
