package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/models"
)

func TestCancellationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCancellationRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cancellation_requests")).
		WithArgs(int64(31), "teacher sick", "pending", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(51), now, now))

	req := &models.CancellationRequest{
		SessionID:   31,
		Reason:      "teacher sick",
		Status:      models.CancellationStatusPending,
		RequestedBy: 5,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.Equal(t, int64(51), req.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancellationRepositoryDecide(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCancellationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE cancellation_requests")).
		WithArgs("approved", int64(9), int64(51), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Decide(context.Background(), 51, models.CancellationStatusApproved, 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancellationRepositoryDecideTwiceFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCancellationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE cancellation_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), 51, models.CancellationStatusRejected, 9)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancellationRepositoryDecideRejectsBadStatus(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCancellationRepository(db)
	require.Error(t, repo.Decide(context.Background(), 51, "pending", 9))
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	require.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	require.False(t, IsUniqueViolation(sql.ErrNoRows))
	require.False(t, IsUniqueViolation(nil))
}
