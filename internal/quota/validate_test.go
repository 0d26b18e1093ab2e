package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validForm() ScheduleForm {
	return ScheduleForm{
		ScheduleName:     "Adults A1 Evening",
		StartDate:        "2025-01-06",
		CourseID:         7,
		RecurringPattern: "weekly",
		TotalHours:       30,
		HoursPerSession:  3,
		SessionPerWeek:   2,
		TimeSlots: []TimeSlotForm{
			{DayOfWeek: "monday", StartTime: "18:00", EndTime: "21:00"},
			{DayOfWeek: "thursday", StartTime: "18:00", EndTime: "21:00"},
		},
	}
}

func fields(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Field)
	}
	return out
}

func TestValidateScheduleForm(t *testing.T) {
	t.Run("valid form has no issues", func(t *testing.T) {
		assert.Empty(t, ValidateScheduleForm(validForm()))
	})

	t.Run("blank name after trimming", func(t *testing.T) {
		f := validForm()
		f.ScheduleName = "   "
		assert.Contains(t, fields(ValidateScheduleForm(f)), "schedule_name")
	})

	t.Run("missing course", func(t *testing.T) {
		f := validForm()
		f.CourseID = 0
		assert.Contains(t, fields(ValidateScheduleForm(f)), "course_id")
	})

	t.Run("date format is strict", func(t *testing.T) {
		for _, bad := range []string{"2025-1-5", "2025/01/06", "2025-01-06T00:00:00Z", "06-01-2025", ""} {
			f := validForm()
			f.StartDate = bad
			assert.Contains(t, fields(ValidateScheduleForm(f)), "start_date", "input %q", bad)
		}
	})

	t.Run("well-formed but impossible date", func(t *testing.T) {
		f := validForm()
		f.StartDate = "2025-13-40"
		assert.Contains(t, fields(ValidateScheduleForm(f)), "start_date")
	})

	t.Run("recurring pattern requires positive numerics", func(t *testing.T) {
		f := validForm()
		f.TotalHours = 0
		f.HoursPerSession = -3
		f.SessionPerWeek = 0
		got := fields(ValidateScheduleForm(f))
		assert.Contains(t, got, "total_hours")
		assert.Contains(t, got, "hours_per_session")
		assert.Contains(t, got, "session_per_week")
	})

	t.Run("pattern none skips numeric rules", func(t *testing.T) {
		f := validForm()
		f.RecurringPattern = "none"
		f.TotalHours = 0
		f.HoursPerSession = 0
		f.SessionPerWeek = 0
		assert.Empty(t, ValidateScheduleForm(f))
	})

	t.Run("absent pattern skips numeric rules", func(t *testing.T) {
		f := validForm()
		f.RecurringPattern = ""
		f.TotalHours = 0
		assert.Empty(t, ValidateScheduleForm(f))
	})

	t.Run("empty time slots", func(t *testing.T) {
		f := validForm()
		f.TimeSlots = nil
		assert.Contains(t, fields(ValidateScheduleForm(f)), "time_slots")
	})

	t.Run("slot issues are indexed per row and field", func(t *testing.T) {
		f := validForm()
		f.TimeSlots = []TimeSlotForm{
			{DayOfWeek: "monday", StartTime: "18:00", EndTime: "21:00"},
			{DayOfWeek: "", StartTime: "", EndTime: "21:00"},
		}
		got := fields(ValidateScheduleForm(f))
		assert.Contains(t, got, "time_slots[1].day_of_week")
		assert.Contains(t, got, "time_slots[1].start_time")
		assert.NotContains(t, got, "time_slots[1].end_time")
		assert.NotContains(t, got, "time_slots[0].day_of_week")
	})

	t.Run("max students below one", func(t *testing.T) {
		f := validForm()
		f.MaxStudents = intPtr(0)
		assert.Contains(t, fields(ValidateScheduleForm(f)), "max_students")
	})

	t.Run("max students absent is fine", func(t *testing.T) {
		f := validForm()
		f.MaxStudents = nil
		assert.Empty(t, ValidateScheduleForm(f))
	})

	t.Run("violations accumulate", func(t *testing.T) {
		got := ValidateScheduleForm(ScheduleForm{RecurringPattern: "weekly"})
		assert.GreaterOrEqual(t, len(got), 6)
	})
}
