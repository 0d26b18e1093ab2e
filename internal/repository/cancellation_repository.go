package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/english-korat/ekls-api/internal/models"
)

// CancellationRepository handles cancellation request persistence.
type CancellationRepository struct {
	db *sqlx.DB
}

// NewCancellationRepository constructs the repository.
func NewCancellationRepository(db *sqlx.DB) *CancellationRepository {
	return &CancellationRepository{db: db}
}

const cancellationColumns = `id, session_id, reason, status, requested_by, decided_by, decided_at,
       created_at, updated_at`

// Create opens a cancellation request. The partial unique index on
// (session_id) WHERE status = 'pending' keeps it to one open request per
// session; the caller maps the conflict to a domain error.
func (r *CancellationRepository) Create(ctx context.Context, req *models.CancellationRequest) error {
	const query = `INSERT INTO cancellation_requests (session_id, reason, status, requested_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query,
		req.SessionID, req.Reason, req.Status, req.RequestedBy,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("create cancellation request: %w", err)
	}
	return nil
}

// GetByID retrieves one cancellation request.
func (r *CancellationRepository) GetByID(ctx context.Context, id int64) (*models.CancellationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM cancellation_requests WHERE id = $1`, cancellationColumns)
	var req models.CancellationRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingBySession returns the open request for a session, if any.
func (r *CancellationRepository) GetPendingBySession(ctx context.Context, sessionID int64) (*models.CancellationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM cancellation_requests WHERE session_id = $1 AND status = $2`, cancellationColumns)
	var req models.CancellationRequest
	if err := r.db.GetContext(ctx, &req, query, sessionID, models.CancellationStatusPending); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns cancellation requests filtered by status, newest first.
func (r *CancellationRepository) List(ctx context.Context, status string) ([]models.CancellationRequest, error) {
	args := make([]interface{}, 0, 1)
	query := fmt.Sprintf(`SELECT %s FROM cancellation_requests`, cancellationColumns)
	if status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += " ORDER BY created_at DESC"

	reqs := []models.CancellationRequest{}
	if err := r.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("list cancellation requests: %w", err)
	}
	return reqs, nil
}

// Decide moves a pending request to approved or rejected. Only pending
// requests can be decided, so a second decision on the same request fails
// with no rows.
func (r *CancellationRepository) Decide(ctx context.Context, id int64, status string, decidedBy int64) error {
	if status != models.CancellationStatusApproved && status != models.CancellationStatusRejected {
		return fmt.Errorf("decide cancellation: invalid target status %q", status)
	}
	const query = `UPDATE cancellation_requests
	SET status = $1, decided_by = $2, decided_at = NOW(), updated_at = NOW()
	WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, status, decidedBy, id, models.CancellationStatusPending)
	if err != nil {
		return fmt.Errorf("decide cancellation request: %w", err)
	}
	return requireRowAffected(res, "cancellation request")
}

// IsUniqueViolation reports whether err is the Postgres duplicate-key
// error, used to detect a second pending request for the same session.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
