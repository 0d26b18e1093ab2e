package quota

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// dateRE accepts calendar dates only; time components and timezone
// suffixes are rejected outright.
var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ScheduleForm is the validated shape of a create/update schedule request.
// Numeric fields arrive already coerced by the transport layer; 0 means
// "absent or unparseable" and fails every positivity rule below.
type ScheduleForm struct {
	ScheduleName     string
	StartDate        string
	CourseID         int64
	RecurringPattern string
	TotalHours       int
	HoursPerSession  int
	SessionPerWeek   int
	MaxStudents      *int
	TimeSlots        []TimeSlotForm
}

// TimeSlotForm is one weekly recurrence row of a schedule form.
type TimeSlotForm struct {
	DayOfWeek string
	StartTime string
	EndTime   string
}

// Issue is a single field-level validation failure. Field uses indexed
// paths (time_slots[2].end_time) so clients can highlight the exact row.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateScheduleForm checks every rule independently and returns all
// violations at once. A nil result means the form is valid.
func ValidateScheduleForm(f ScheduleForm) []Issue {
	var issues []Issue

	if strings.TrimSpace(f.ScheduleName) == "" {
		issues = append(issues, Issue{Field: "schedule_name", Message: "schedule name is required"})
	}

	if !dateRE.MatchString(f.StartDate) {
		issues = append(issues, Issue{Field: "start_date", Message: "start date must be in YYYY-MM-DD format"})
	} else if _, err := time.Parse("2006-01-02", f.StartDate); err != nil {
		issues = append(issues, Issue{Field: "start_date", Message: "start date is not a valid calendar date"})
	}

	if f.CourseID == 0 {
		issues = append(issues, Issue{Field: "course_id", Message: "course is required"})
	}

	if f.RecurringPattern != "" && f.RecurringPattern != "none" {
		if f.HoursPerSession <= 0 {
			issues = append(issues, Issue{Field: "hours_per_session", Message: "hours per session must be a positive integer"})
		}
		if f.TotalHours <= 0 {
			issues = append(issues, Issue{Field: "total_hours", Message: "total hours must be a positive integer"})
		}
		if f.SessionPerWeek <= 0 {
			issues = append(issues, Issue{Field: "session_per_week", Message: "sessions per week must be a positive integer"})
		}
	}

	if len(f.TimeSlots) == 0 {
		issues = append(issues, Issue{Field: "time_slots", Message: "at least one time slot is required"})
	}
	for i, slot := range f.TimeSlots {
		if strings.TrimSpace(slot.DayOfWeek) == "" {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("time_slots[%d].day_of_week", i),
				Message: "day of week is required",
			})
		}
		if strings.TrimSpace(slot.StartTime) == "" {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("time_slots[%d].start_time", i),
				Message: "start time is required",
			})
		}
		if strings.TrimSpace(slot.EndTime) == "" {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("time_slots[%d].end_time", i),
				Message: "end time is required",
			})
		}
	}

	if f.MaxStudents != nil && *f.MaxStudents < 1 {
		issues = append(issues, Issue{Field: "max_students", Message: "max students must be at least 1"})
	}

	return issues
}
