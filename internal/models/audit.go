package models

import "time"

// Audit actions.
const (
	AuditQuotaOverride        = "quota_override"
	AuditCancellationApproved = "cancellation_approved"
	AuditCancellationRejected = "cancellation_rejected"
	AuditMakeupCreated        = "makeup_created"
)

// AuditLog records who changed what. Quota overrides always carry a
// reason; decision entries carry the request id in EntityID.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	ActorID    int64     `db:"actor_id" json:"actor_id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   int64     `db:"entity_id" json:"entity_id"`
	OldValue   *string   `db:"old_value" json:"old_value,omitempty"`
	NewValue   *string   `db:"new_value" json:"new_value,omitempty"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
