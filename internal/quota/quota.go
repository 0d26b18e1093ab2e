// Package quota holds the makeup-quota business rules shared by the
// schedule, cancellation and makeup services. Everything here is pure:
// no database, no clock, no side effects.
package quota

import (
	"fmt"

	"github.com/english-korat/ekls-api/internal/models"
)

// DefaultQuota is the makeup allowance assumed for schedules created
// before quota tracking existed, where make_up_quota is NULL.
const DefaultQuota = 2

// Usage is the reconciled quota state of a schedule.
type Usage struct {
	Total      int     `json:"total"`
	Used       int     `json:"used"`
	Remaining  int     `json:"remaining"`
	Percentage float64 `json:"percentage"`
	HasQuota   bool    `json:"has_quota"`
}

// Eligibility is the verdict on whether a makeup session may be created.
type Eligibility struct {
	CanCreate bool   `json:"can_create"`
	Reason    string `json:"reason,omitempty"`
}

// Check reconciles the three nullable quota columns into a Usage using
// the standard default allowance.
func Check(s *models.Schedule) Usage {
	return CheckWithDefault(s, DefaultQuota)
}

// CheckWithDefault is Check with a caller-supplied default allowance.
//
// make_up_remaining, when present, wins over quota-minus-used arithmetic:
// admins may set remaining directly without touching used, so the stored
// value is authoritative and is never "corrected" here.
func CheckWithDefault(s *models.Schedule, defaultQuota int) Usage {
	total := nonNegative(defaultQuota)
	if s != nil && s.MakeUpQuota != nil {
		total = nonNegative(*s.MakeUpQuota)
	}

	used := 0
	if s != nil && s.MakeUpUsed != nil {
		used = nonNegative(*s.MakeUpUsed)
	}

	remaining := total - used
	if remaining < 0 {
		remaining = 0
	}
	if s != nil && s.MakeUpRemaining != nil {
		remaining = nonNegative(*s.MakeUpRemaining)
	}

	var percentage float64
	if total > 0 {
		percentage = float64(remaining) / float64(total) * 100
		if percentage < 0 {
			percentage = 0
		}
		if percentage > 100 {
			percentage = 100
		}
	}

	return Usage{
		Total:      total,
		Used:       used,
		Remaining:  remaining,
		Percentage: percentage,
		HasQuota:   remaining > 0,
	}
}

// CanCreateMakeup decides whether a makeup session may be created for the
// given schedule and (optionally) the session being made up, using the
// standard default allowance.
func CanCreateMakeup(s *models.Schedule, sess *models.Session) Eligibility {
	return CanCreateMakeupWithDefault(s, sess, DefaultQuota)
}

// CanCreateMakeupWithDefault applies the checks in a fixed order and stops
// at the first failure: quota exhaustion, then an existing makeup, then
// the session itself being a makeup.
func CanCreateMakeupWithDefault(s *models.Schedule, sess *models.Session, defaultQuota int) Eligibility {
	usage := CheckWithDefault(s, defaultQuota)
	if !usage.HasQuota {
		return Eligibility{
			CanCreate: false,
			Reason:    fmt.Sprintf("no makeup quota remaining (%d/%d used)", usage.Used, usage.Total),
		}
	}
	if sess != nil && sess.HasMakeupSession {
		return Eligibility{CanCreate: false, Reason: "session already has a makeup session"}
	}
	if sess != nil && sess.IsMakeup {
		return Eligibility{CanCreate: false, Reason: "cannot create a makeup for a makeup session"}
	}
	return Eligibility{CanCreate: true}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
