package dto

import "github.com/english-korat/ekls-api/internal/quota"

// QuotaSnapshot is the GET quota payload for one schedule.
type QuotaSnapshot struct {
	ScheduleID   int64       `json:"schedule_id"`
	ScheduleName string      `json:"schedule_name"`
	Quota        quota.Usage `json:"quota"`
}

// UpdateQuotaRequest is the admin override for make_up_remaining. The
// reason is mandatory; it goes straight into the audit log.
type UpdateQuotaRequest struct {
	MakeUpRemaining *FlexInt `json:"make_up_remaining" binding:"required"`
	Reason          string   `json:"reason" binding:"required"`
}

// UpdateQuotaResponse echoes the quota movement of an override.
type UpdateQuotaResponse struct {
	ScheduleID   int64       `json:"schedule_id"`
	OldRemaining int         `json:"old_remaining"`
	NewRemaining int         `json:"new_remaining"`
	Quota        quota.Usage `json:"quota"`
}
