package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/english-korat/ekls-api/internal/models"
)

// ScheduleRepository handles schedule persistence.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, schedule_name, course_id, group_id, recurring_pattern, total_hours,
       hours_per_session, session_per_week, max_students, start_date, estimated_end_date, status,
       make_up_quota, make_up_used, make_up_remaining, notes, created_at, updated_at`

// Create inserts a schedule and its time slots in one transaction.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule, slots []models.ScheduleTimeSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO schedules
	(schedule_name, course_id, group_id, recurring_pattern, total_hours, hours_per_session,
	 session_per_week, max_students, start_date, estimated_end_date, status,
	 make_up_quota, make_up_used, make_up_remaining, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	RETURNING id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, query,
		schedule.ScheduleName, schedule.CourseID, schedule.GroupID, schedule.RecurringPattern,
		schedule.TotalHours, schedule.HoursPerSession, schedule.SessionPerWeek, schedule.MaxStudents,
		schedule.StartDate, schedule.EstimatedEndDate, schedule.Status,
		schedule.MakeUpQuota, schedule.MakeUpUsed, schedule.MakeUpRemaining, schedule.Notes,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	for i := range slots {
		slots[i].ScheduleID = schedule.ID
		const slotQuery = `INSERT INTO schedule_time_slots (schedule_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4) RETURNING id`
		if err := tx.QueryRowxContext(ctx, slotQuery,
			slots[i].ScheduleID, slots[i].DayOfWeek, slots[i].StartTime, slots[i].EndTime,
		).Scan(&slots[i].ID); err != nil {
			return fmt.Errorf("create schedule time slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// GetByID retrieves one schedule row.
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetTimeSlots returns a schedule's weekly recurrence rows.
func (r *ScheduleRepository) GetTimeSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleTimeSlot, error) {
	const query = `SELECT id, schedule_id, day_of_week, start_time, end_time
	FROM schedule_time_slots WHERE schedule_id = $1 ORDER BY id`
	slots := []models.ScheduleTimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule time slots: %w", err)
	}
	return slots, nil
}

// List returns schedules applying filters with pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)

	if filter.CourseID != 0 {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.GroupID != 0 {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedules"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case "schedule_name", "start_date", "status":
		sortBy = filter.SortBy
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM schedules%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		scheduleColumns, where, sortBy, order, len(args)-1, len(args))

	schedules := []models.Schedule{}
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, total, nil
}

// Update rewrites the mutable columns of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	const query = `UPDATE schedules SET
	schedule_name = $1, recurring_pattern = $2, total_hours = $3, hours_per_session = $4,
	session_per_week = $5, max_students = $6, start_date = $7, estimated_end_date = $8,
	status = $9, notes = $10, updated_at = NOW()
	WHERE id = $11`
	res, err := r.db.ExecContext(ctx, query,
		schedule.ScheduleName, schedule.RecurringPattern, schedule.TotalHours,
		schedule.HoursPerSession, schedule.SessionPerWeek, schedule.MaxStudents,
		schedule.StartDate, schedule.EstimatedEndDate, schedule.Status, schedule.Notes, schedule.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return requireRowAffected(res, "schedule")
}

// UpdateQuota sets the remaining-quota column directly (admin override).
// used and quota stay untouched; remaining is authoritative from then on.
func (r *ScheduleRepository) UpdateQuota(ctx context.Context, scheduleID int64, remaining int) error {
	const query = `UPDATE schedules SET make_up_remaining = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, remaining, scheduleID)
	if err != nil {
		return fmt.Errorf("update schedule quota: %w", err)
	}
	return requireRowAffected(res, "schedule")
}

// ConsumeQuota atomically decrements the remaining quota and increments
// the used counter, failing when nothing is left so two concurrent
// approvals cannot both spend the final slot.
func (r *ScheduleRepository) ConsumeQuota(ctx context.Context, scheduleID int64, defaultQuota int) (*models.Schedule, error) {
	const query = `UPDATE schedules SET
	make_up_used = COALESCE(make_up_used, 0) + 1,
	make_up_remaining = COALESCE(make_up_remaining, COALESCE(make_up_quota, $2) - COALESCE(make_up_used, 0)) - 1,
	updated_at = NOW()
	WHERE id = $1
	  AND COALESCE(make_up_remaining, COALESCE(make_up_quota, $2) - COALESCE(make_up_used, 0)) > 0
	RETURNING ` + scheduleColumns
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, scheduleID, defaultQuota); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// RefundQuota reverses one ConsumeQuota: the used counter goes back
// down and the remaining slot is handed back.
func (r *ScheduleRepository) RefundQuota(ctx context.Context, scheduleID int64) error {
	const query = `UPDATE schedules SET
	make_up_used = GREATEST(COALESCE(make_up_used, 0) - 1, 0),
	make_up_remaining = COALESCE(make_up_remaining, 0) + 1,
	updated_at = NOW()
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, scheduleID)
	if err != nil {
		return fmt.Errorf("refund schedule quota: %w", err)
	}
	return requireRowAffected(res, "schedule")
}

// QuotaUsage returns the per-schedule quota columns for reporting.
func (r *ScheduleRepository) QuotaUsage(ctx context.Context) ([]models.QuotaUsageRow, error) {
	const query = `SELECT id, schedule_name, make_up_quota, make_up_used, make_up_remaining
	FROM schedules ORDER BY schedule_name`
	rows := []models.QuotaUsageRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("quota usage report: %w", err)
	}
	return rows, nil
}
