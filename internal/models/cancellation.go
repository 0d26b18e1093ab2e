package models

import "time"

// Cancellation request statuses.
const (
	CancellationStatusPending  = "pending"
	CancellationStatusApproved = "approved"
	CancellationStatusRejected = "rejected"
)

// CancellationRequest records a request to cancel one session. At most one
// pending request may exist per session.
type CancellationRequest struct {
	ID          int64      `db:"id" json:"id"`
	SessionID   int64      `db:"session_id" json:"session_id"`
	Reason      string     `db:"reason" json:"reason"`
	Status      string     `db:"status" json:"status"`
	RequestedBy int64      `db:"requested_by" json:"requested_by"`
	DecidedBy   *int64     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt   *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
