package models

import "time"

// Session statuses. pending_cancellation marks a session whose cancellation
// request awaits an admin decision.
const (
	SessionStatusScheduled           = "scheduled"
	SessionStatusConfirmed           = "confirmed"
	SessionStatusPending             = "pending"
	SessionStatusCompleted           = "completed"
	SessionStatusCancelled           = "cancelled"
	SessionStatusRescheduled         = "rescheduled"
	SessionStatusNoShow              = "no-show"
	SessionStatusPendingCancellation = "pending_cancellation"
)

// Session is one dated occurrence of a schedule.
type Session struct {
	ID                 int64     `db:"id" json:"id"`
	ScheduleID         int64     `db:"schedule_id" json:"schedule_id"`
	SessionDate        time.Time `db:"session_date" json:"session_date"`
	StartTime          string    `db:"start_time" json:"start_time"`
	EndTime            string    `db:"end_time" json:"end_time"`
	SessionNumber      int       `db:"session_number" json:"session_number"`
	WeekNumber         int       `db:"week_number" json:"week_number"`
	Status             string    `db:"status" json:"status"`
	CancellingReason   string    `db:"cancelling_reason" json:"cancelling_reason,omitempty"`
	IsMakeup           bool      `db:"is_makeup" json:"is_makeup"`
	MakeupForSessionID *int64    `db:"makeup_for_session_id" json:"makeup_for_session_id,omitempty"`
	HasMakeupSession   bool      `db:"has_makeup_session" json:"has_makeup_session"`
	Notes              string    `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// SessionFilter narrows session listings. FromDate and ToDate are
// inclusive YYYY-MM-DD bounds on the session date.
type SessionFilter struct {
	ScheduleID int64
	Status     string
	IsMakeup   *bool
	FromDate   string
	ToDate     string
}

// NeedingMakeupSession is a cancelled session that consumed quota but has
// no compensating session yet, joined with the schedule fields the
// eligibility gate needs.
type NeedingMakeupSession struct {
	SessionID        int64     `db:"session_id" json:"session_id"`
	ScheduleID       int64     `db:"schedule_id" json:"schedule_id"`
	GroupID          *int64    `db:"group_id" json:"group_id,omitempty"`
	CourseID         int64     `db:"course_id" json:"course_id"`
	ScheduleName     string    `db:"schedule_name" json:"schedule_name"`
	SessionDate      time.Time `db:"session_date" json:"session_date"`
	StartTime        string    `db:"start_time" json:"start_time"`
	EndTime          string    `db:"end_time" json:"end_time"`
	IsMakeup         bool      `db:"is_makeup" json:"is_makeup"`
	HasMakeupSession bool      `db:"has_makeup_session" json:"has_makeup_session"`
	MakeUpQuota      *int      `db:"make_up_quota" json:"-"`
	MakeUpUsed       *int      `db:"make_up_used" json:"-"`
	MakeUpRemaining  *int      `db:"make_up_remaining" json:"-"`
}
