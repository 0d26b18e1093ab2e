package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/english-korat/ekls-api/internal/models"
)

// AuditRepository persists the audit trail for quota overrides and
// cancellation decisions.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	const query = `INSERT INTO audit_logs
	(actor_id, action, entity_type, entity_id, old_value, new_value, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query,
		entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.OldValue, entry.NewValue, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns the audit trail of one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditLog, error) {
	const query = `SELECT id, actor_id, action, entity_type, entity_id, old_value, new_value, reason, created_at
	FROM audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC`
	entries := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &entries, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
