package models

import "time"

// Schedule statuses. Transitions happen server-side only; clients request
// them and observe the result.
const (
	ScheduleStatusAssigned  = "assigned"
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusPaused    = "paused"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusCancelled = "cancelled"
)

// Schedule represents a recurring class offering from which sessions are
// generated. The three makeup columns are nullable: schedules created
// before quota tracking carry NULL quota, and make_up_remaining may be set
// independently of quota-used arithmetic (admin override), so it is
// authoritative whenever present.
type Schedule struct {
	ID               int64      `db:"id" json:"id"`
	ScheduleName     string     `db:"schedule_name" json:"schedule_name"`
	CourseID         int64      `db:"course_id" json:"course_id"`
	GroupID          *int64     `db:"group_id" json:"group_id,omitempty"`
	RecurringPattern string     `db:"recurring_pattern" json:"recurring_pattern"`
	TotalHours       int        `db:"total_hours" json:"total_hours"`
	HoursPerSession  int        `db:"hours_per_session" json:"hours_per_session"`
	SessionPerWeek   int        `db:"session_per_week" json:"session_per_week"`
	MaxStudents      int        `db:"max_students" json:"max_students"`
	StartDate        time.Time  `db:"start_date" json:"start_date"`
	EstimatedEndDate *time.Time `db:"estimated_end_date" json:"estimated_end_date,omitempty"`
	Status           string     `db:"status" json:"status"`
	MakeUpQuota      *int       `db:"make_up_quota" json:"make_up_quota,omitempty"`
	MakeUpUsed       *int       `db:"make_up_used" json:"make_up_used,omitempty"`
	MakeUpRemaining  *int       `db:"make_up_remaining" json:"make_up_remaining,omitempty"`
	Notes            string     `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ScheduleTimeSlot defines one weekly recurrence window. A schedule owns at
// least one; ordering is irrelevant.
type ScheduleTimeSlot struct {
	ID         int64  `db:"id" json:"id"`
	ScheduleID int64  `db:"schedule_id" json:"schedule_id"`
	DayOfWeek  string `db:"day_of_week" json:"day_of_week"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	CourseID  int64
	GroupID   int64
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// QuotaUsageRow is one line of the quota usage report.
type QuotaUsageRow struct {
	ScheduleID      int64  `db:"id" json:"schedule_id"`
	ScheduleName    string `db:"schedule_name" json:"schedule_name"`
	MakeUpQuota     *int   `db:"make_up_quota" json:"make_up_quota,omitempty"`
	MakeUpUsed      *int   `db:"make_up_used" json:"make_up_used,omitempty"`
	MakeUpRemaining *int   `db:"make_up_remaining" json:"make_up_remaining,omitempty"`
}
