package dto

import (
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
)

// TimeSlotRequest is one weekly recurrence row submitted with a schedule.
type TimeSlotRequest struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CreateScheduleRequest is the create/update schedule payload. Numeric
// fields use FlexInt because the admin forms submit them as strings as
// often as numbers.
type CreateScheduleRequest struct {
	ScheduleName     string            `json:"schedule_name"`
	CourseID         FlexInt           `json:"course_id"`
	GroupID          *FlexInt          `json:"group_id"`
	RecurringPattern string            `json:"recurring_pattern"`
	TotalHours       FlexInt           `json:"total_hours"`
	HoursPerSession  FlexInt           `json:"hours_per_session"`
	SessionPerWeek   FlexInt           `json:"session_per_week"`
	MaxStudents      *FlexInt          `json:"max_students"`
	StartDate        string            `json:"start_date"`
	TimeSlots        []TimeSlotRequest `json:"time_slots"`
	Notes            string            `json:"notes"`
}

// Form converts the request into the validator's well-typed shape.
func (r CreateScheduleRequest) Form() quota.ScheduleForm {
	slots := make([]quota.TimeSlotForm, 0, len(r.TimeSlots))
	for _, s := range r.TimeSlots {
		slots = append(slots, quota.TimeSlotForm{
			DayOfWeek: s.DayOfWeek,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	return quota.ScheduleForm{
		ScheduleName:     r.ScheduleName,
		StartDate:        r.StartDate,
		CourseID:         int64(r.CourseID.Int()),
		RecurringPattern: r.RecurringPattern,
		TotalHours:       r.TotalHours.Int(),
		HoursPerSession:  r.HoursPerSession.Int(),
		SessionPerWeek:   r.SessionPerWeek.Int(),
		MaxStudents:      r.MaxStudents.IntPtr(),
		TimeSlots:        slots,
	}
}

// DeriveInput converts the request into the field deriver's input.
func (r CreateScheduleRequest) DeriveInput() quota.DeriveInput {
	return quota.DeriveInput{
		TotalHours:      r.TotalHours.Int(),
		HoursPerSession: r.HoursPerSession.Int(),
		SessionPerWeek:  r.SessionPerWeek.Int(),
		StartDate:       r.StartDate,
	}
}

// ScheduleResponse decorates a schedule with its derived fields and the
// reconciled quota snapshot so clients never recompute either.
type ScheduleResponse struct {
	models.Schedule
	TimeSlots     []models.ScheduleTimeSlot `json:"time_slots,omitempty"`
	TotalSessions *int                      `json:"total_sessions,omitempty"`
	Quota         quota.Usage               `json:"quota"`
}

// SchedulePreviewResponse is returned by the dry-run derivation endpoint
// used while the admin is still filling in the form.
type SchedulePreviewResponse struct {
	Issues  []quota.Issue `json:"issues"`
	Derived quota.Derived `json:"derived"`
}
