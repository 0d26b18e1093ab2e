package dto

import (
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
)

// CreateMakeupRequest schedules a replacement for a cancelled session.
type CreateMakeupRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Notes     string `json:"notes"`
}

// NeedingMakeupItem is one cancelled session awaiting a makeup, carrying
// the advisory eligibility verdict so list views can disable ineligible
// rows without a round trip. Creation re-checks server-side regardless.
type NeedingMakeupItem struct {
	models.NeedingMakeupSession
	Quota       quota.Usage `json:"quota"`
	Eligibility quota.Eligibility `json:"eligibility"`
}
