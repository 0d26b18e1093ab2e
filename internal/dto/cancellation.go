package dto

import (
	"time"

	"github.com/english-korat/ekls-api/internal/models"
)

// RequestCancellationRequest opens a cancellation request for a session.
type RequestCancellationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectCancellationRequest carries the optional rejection note.
type RejectCancellationRequest struct {
	Note string `json:"note"`
}

// AffectedStudent reports one student's quota movement caused by an
// approval. Warning is set when the new remaining drops to the configured
// threshold or below.
type AffectedStudent struct {
	StudentID      int64  `json:"student_id"`
	StudentName    string `json:"student_name"`
	OldMakeupQuota int    `json:"old_makeup_quota"`
	NewMakeupQuota int    `json:"new_makeup_quota"`
	Warning        string `json:"warning,omitempty"`
}

// ApproveCancellationResponse is the single-approval payload.
type ApproveCancellationResponse struct {
	Session          models.Session    `json:"session"`
	MakeupNeeded     bool              `json:"makeup_class_needed"`
	AffectedStudents []AffectedStudent `json:"affected_students"`
}

// CancellationResponse is a request joined with its session for listings.
type CancellationResponse struct {
	models.CancellationRequest
	ScheduleID   int64      `json:"schedule_id"`
	ScheduleName string     `json:"schedule_name"`
	SessionDate  *time.Time `json:"session_date,omitempty"`
}

// BulkApproveRequest approves several pending cancellations at once.
type BulkApproveRequest struct {
	SessionIDs []int64 `json:"session_ids" binding:"required,min=1"`
}

// BulkApproveFailure names one session that could not be approved.
// Failures here are outcomes, not errors: the bulk call itself succeeds
// as long as the input parses.
type BulkApproveFailure struct {
	SessionID int64  `json:"session_id"`
	Reason    string `json:"reason"`
}

// BulkApproveSummary totals a bulk approval run.
type BulkApproveSummary struct {
	TotalRequested int `json:"total_requested"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}

// BulkApproveResponse reports per-session outcomes of a bulk approval.
type BulkApproveResponse struct {
	Summary  BulkApproveSummary            `json:"summary"`
	Approved []ApproveCancellationResponse `json:"approved"`
	Failures []BulkApproveFailure          `json:"failures"`
}
