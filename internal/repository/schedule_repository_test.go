package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "schedule_name", "course_id", "group_id", "recurring_pattern", "total_hours",
		"hours_per_session", "session_per_week", "max_students", "start_date", "estimated_end_date",
		"status", "make_up_quota", "make_up_used", "make_up_remaining", "notes", "created_at", "updated_at",
	})
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedule_time_slots")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mock.ExpectCommit()

	schedule := &models.Schedule{
		ScheduleName:     "Adults A1 Evening",
		CourseID:         7,
		RecurringPattern: "weekly",
		TotalHours:       30,
		HoursPerSession:  3,
		SessionPerWeek:   2,
		MaxStudents:      8,
		StartDate:        now,
		Status:           models.ScheduleStatusAssigned,
	}
	slots := []models.ScheduleTimeSlot{{DayOfWeek: "monday", StartTime: "18:00", EndTime: "21:00"}}

	require.NoError(t, repo.Create(context.Background(), schedule, slots))
	require.Equal(t, int64(11), schedule.ID)
	require.Equal(t, int64(11), slots[0].ScheduleID)
	require.Equal(t, int64(21), slots[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()
	quota, used := 2, 1

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_name, course_id")).
		WithArgs(int64(11)).
		WillReturnRows(scheduleRows().AddRow(
			int64(11), "Adults A1 Evening", int64(7), nil, "weekly", 30,
			3, 2, 8, now, nil, "assigned", quota, used, nil, "", now, now))

	found, err := repo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	require.Equal(t, "Adults A1 Evening", found.ScheduleName)
	require.NotNil(t, found.MakeUpQuota)
	require.Equal(t, 2, *found.MakeUpQuota)
	require.Nil(t, found.MakeUpRemaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules")).
		WithArgs(int64(7), "assigned").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_name, course_id")).
		WithArgs(int64(7), "assigned", 20, 0).
		WillReturnRows(scheduleRows().AddRow(
			int64(11), "Adults A1 Evening", int64(7), nil, "weekly", 30,
			3, 2, 8, now, nil, "assigned", 2, 0, nil, "", now, now))

	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{CourseID: 7, Status: "assigned"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, schedules, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryConsumeQuota(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE schedules SET")).
		WithArgs(int64(11), 2).
		WillReturnRows(scheduleRows().AddRow(
			int64(11), "Adults A1 Evening", int64(7), nil, "weekly", 30,
			3, 2, 8, now, nil, "assigned", 2, 2, 0, "", now, now))

	schedule, err := repo.ConsumeQuota(context.Background(), 11, 2)
	require.NoError(t, err)
	require.Equal(t, 2, *schedule.MakeUpUsed)
	require.Equal(t, 0, *schedule.MakeUpRemaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryConsumeQuotaExhausted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE schedules SET")).
		WithArgs(int64(11), 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ConsumeQuota(context.Background(), 11, 2)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryRefundQuota(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("make_up_used = GREATEST(COALESCE(make_up_used, 0) - 1, 0)")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RefundQuota(context.Background(), 11))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateQuota(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET make_up_remaining")).
		WithArgs(3, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateQuota(context.Background(), 11, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}
