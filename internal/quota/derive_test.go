package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveScheduleFields(t *testing.T) {
	t.Run("total sessions rounds up", func(t *testing.T) {
		got := DeriveScheduleFields(DeriveInput{TotalHours: 30, HoursPerSession: 3})
		require.NotNil(t, got.TotalSessions)
		assert.Equal(t, 10, *got.TotalSessions)

		got = DeriveScheduleFields(DeriveInput{TotalHours: 31, HoursPerSession: 3})
		require.NotNil(t, got.TotalSessions)
		assert.Equal(t, 11, *got.TotalSessions)
	})

	t.Run("missing hours per session yields nil not zero", func(t *testing.T) {
		got := DeriveScheduleFields(DeriveInput{TotalHours: 30})
		assert.Nil(t, got.TotalSessions)
		assert.Nil(t, got.EstimatedEndDate)
	})

	t.Run("end date is last day of final week", func(t *testing.T) {
		// 10 sessions at 2 per week is 5 weeks; Monday start, Sunday end.
		got := DeriveScheduleFields(DeriveInput{
			TotalHours:      30,
			HoursPerSession: 3,
			SessionPerWeek:  2,
			StartDate:       "2025-01-06",
		})
		require.NotNil(t, got.EstimatedEndDate)
		assert.Equal(t, "2025-02-09", *got.EstimatedEndDate)
	})

	t.Run("one week schedule ends the following sunday", func(t *testing.T) {
		got := DeriveScheduleFields(DeriveInput{
			TotalHours:      6,
			HoursPerSession: 3,
			SessionPerWeek:  2,
			StartDate:       "2025-01-06",
		})
		require.NotNil(t, got.EstimatedEndDate)
		assert.Equal(t, "2025-01-12", *got.EstimatedEndDate)
	})

	t.Run("partial final week still counts whole", func(t *testing.T) {
		// 10 sessions at 3 per week is 4 weeks.
		got := DeriveScheduleFields(DeriveInput{
			TotalHours:      30,
			HoursPerSession: 3,
			SessionPerWeek:  3,
			StartDate:       "2025-01-06",
		})
		require.NotNil(t, got.EstimatedEndDate)
		assert.Equal(t, "2025-02-02", *got.EstimatedEndDate)
	})

	t.Run("end date needs all three inputs", func(t *testing.T) {
		got := DeriveScheduleFields(DeriveInput{TotalHours: 30, HoursPerSession: 3, StartDate: "2025-01-06"})
		require.NotNil(t, got.TotalSessions)
		assert.Nil(t, got.EstimatedEndDate)

		got = DeriveScheduleFields(DeriveInput{TotalHours: 30, HoursPerSession: 3, SessionPerWeek: 2})
		assert.Nil(t, got.EstimatedEndDate)
	})

	t.Run("loose date formats are rejected", func(t *testing.T) {
		for _, bad := range []string{"2025-1-6", "2025-01-06T00:00:00Z", "garbage"} {
			got := DeriveScheduleFields(DeriveInput{
				TotalHours:      30,
				HoursPerSession: 3,
				SessionPerWeek:  2,
				StartDate:       bad,
			})
			assert.Nil(t, got.EstimatedEndDate, "input %q", bad)
			assert.NotNil(t, got.TotalSessions)
		}
	})

	t.Run("month boundary crossing", func(t *testing.T) {
		got := DeriveScheduleFields(DeriveInput{
			TotalHours:      8,
			HoursPerSession: 2,
			SessionPerWeek:  1,
			StartDate:       "2025-01-20",
		})
		require.NotNil(t, got.EstimatedEndDate)
		assert.Equal(t, "2025-02-16", *got.EstimatedEndDate)
	})
}
