package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/english-korat/ekls-api/internal/models"
)

// SessionRepository handles class session persistence.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, schedule_id, session_date, start_time, end_time, session_number,
       week_number, status, cancelling_reason, is_makeup, makeup_for_session_id, notes,
       created_at, updated_at`

// Create inserts one session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `INSERT INTO schedule_sessions
	(schedule_id, session_date, start_time, end_time, session_number, week_number, status,
	 cancelling_reason, is_makeup, makeup_for_session_id, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query,
		session.ScheduleID, session.SessionDate, session.StartTime, session.EndTime,
		session.SessionNumber, session.WeekNumber, session.Status, session.CancellingReason,
		session.IsMakeup, session.MakeupForSessionID, session.Notes,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateBatch inserts generated sessions inside one transaction.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create sessions: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO schedule_sessions
	(schedule_id, session_date, start_time, end_time, session_number, week_number, status,
	 is_makeup, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`
	for i := range sessions {
		s := &sessions[i]
		if err := tx.QueryRowxContext(ctx, query,
			s.ScheduleID, s.SessionDate, s.StartTime, s.EndTime,
			s.SessionNumber, s.WeekNumber, s.Status, s.IsMakeup,
		).Scan(&s.ID); err != nil {
			return fmt.Errorf("create session batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create sessions: %w", err)
	}
	return nil
}

// GetByID retrieves one session, including the derived has-makeup flag.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + `,
	EXISTS (SELECT 1 FROM schedule_sessions m WHERE m.makeup_for_session_id = schedule_sessions.id) AS has_makeup_session
	FROM schedule_sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions applying filters, newest date first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	args := make([]interface{}, 0, 5)
	conditions := make([]string, 0, 5)

	if filter.ScheduleID != 0 {
		args = append(args, filter.ScheduleID)
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.IsMakeup != nil {
		args = append(args, *filter.IsMakeup)
		conditions = append(conditions, fmt.Sprintf("is_makeup = $%d", len(args)))
	}
	if filter.FromDate != "" {
		args = append(args, filter.FromDate)
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)))
	}
	if filter.ToDate != "" {
		args = append(args, filter.ToDate)
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + `,
	EXISTS (SELECT 1 FROM schedule_sessions m WHERE m.makeup_for_session_id = schedule_sessions.id) AS has_makeup_session
	FROM schedule_sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY session_date DESC, id DESC"

	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// UpdateStatus moves a session between lifecycle states. The expected
// states guard against racing decisions on the same session.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id int64, from []string, to string, reason *string) error {
	args := []interface{}{to, reason, id}
	placeholders := make([]string, 0, len(from))
	for _, s := range from {
		args = append(args, s)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf(`UPDATE schedule_sessions
	SET status = $1, cancelling_reason = COALESCE($2, cancelling_reason), updated_at = NOW()
	WHERE id = $3 AND status IN (%s)`, strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return requireRowAffected(res, "session")
}

// ListNeedingMakeup returns cancelled, non-makeup sessions with no makeup
// session yet, joined with their schedule's quota columns.
func (r *SessionRepository) ListNeedingMakeup(ctx context.Context) ([]models.NeedingMakeupSession, error) {
	const query = `SELECT s.id AS session_id, s.schedule_id, s.session_date, s.start_time,
	       s.end_time, s.is_makeup, sc.group_id, sc.course_id, sc.schedule_name,
	       sc.make_up_quota, sc.make_up_used, sc.make_up_remaining
	FROM schedule_sessions s
	JOIN schedules sc ON sc.id = s.schedule_id
	WHERE s.status = $1
	  AND s.is_makeup = FALSE
	  AND NOT EXISTS (SELECT 1 FROM schedule_sessions m WHERE m.makeup_for_session_id = s.id)
	ORDER BY s.session_date DESC`
	rows := []models.NeedingMakeupSession{}
	if err := r.db.SelectContext(ctx, &rows, query, models.SessionStatusCancelled); err != nil {
		return nil, fmt.Errorf("list sessions needing makeup: %w", err)
	}
	return rows, nil
}

// HasMakeup reports whether a makeup session already points at this one.
func (r *SessionRepository) HasMakeup(ctx context.Context, sessionID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedule_sessions WHERE makeup_for_session_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sessionID); err != nil {
		return false, fmt.Errorf("check makeup existence: %w", err)
	}
	return exists, nil
}
