package quota

import "time"

// DeriveInput carries the schedule fields the deriver reads. Zero values
// mean "absent"; the deriver never treats them as literal zeroes.
type DeriveInput struct {
	TotalHours      int
	HoursPerSession int
	SessionPerWeek  int
	StartDate       string
}

// Derived holds computed schedule fields. Nil means "cannot compute",
// which is distinct from a computed zero and must stay that way so
// callers do not persist bogus values.
type Derived struct {
	TotalSessions    *int    `json:"total_sessions,omitempty"`
	EstimatedEndDate *string `json:"estimated_end_date,omitempty"`
}

// DeriveScheduleFields computes total_sessions and estimated_end_date
// from whatever inputs are available.
//
// The end date lands on the last day of the final week, counted
// inclusively from the start date: a schedule starting on a Monday and
// running one week ends the following Sunday, hence the minus one day.
func DeriveScheduleFields(in DeriveInput) Derived {
	var out Derived

	if in.TotalHours > 0 && in.HoursPerSession > 0 {
		sessions := ceilDiv(in.TotalHours, in.HoursPerSession)
		out.TotalSessions = &sessions
	}

	if out.TotalSessions == nil || in.SessionPerWeek <= 0 {
		return out
	}
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil || !dateRE.MatchString(in.StartDate) {
		return out
	}

	weeks := ceilDiv(*out.TotalSessions, in.SessionPerWeek)
	end := start.AddDate(0, 0, weeks*7-1).Format("2006-01-02")
	out.EstimatedEndDate = &end

	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
