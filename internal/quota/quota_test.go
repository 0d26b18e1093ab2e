package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/english-korat/ekls-api/internal/models"
)

func intPtr(n int) *int { return &n }

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		schedule *models.Schedule
		want     Usage
	}{
		{
			name:     "all fields present",
			schedule: &models.Schedule{MakeUpQuota: intPtr(4), MakeUpUsed: intPtr(1), MakeUpRemaining: intPtr(3)},
			want:     Usage{Total: 4, Used: 1, Remaining: 3, Percentage: 75, HasQuota: true},
		},
		{
			name:     "quota absent falls back to default of two",
			schedule: &models.Schedule{},
			want:     Usage{Total: 2, Used: 0, Remaining: 2, Percentage: 100, HasQuota: true},
		},
		{
			name:     "remaining computed when absent",
			schedule: &models.Schedule{MakeUpQuota: intPtr(3), MakeUpUsed: intPtr(1)},
			want:     Usage{Total: 3, Used: 1, Remaining: 2, Percentage: 200.0 / 3.0, HasQuota: true},
		},
		{
			name:     "explicit remaining wins over arithmetic",
			schedule: &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(2), MakeUpRemaining: intPtr(1)},
			want:     Usage{Total: 2, Used: 2, Remaining: 1, Percentage: 50, HasQuota: true},
		},
		{
			name:     "used exceeding total never goes negative",
			schedule: &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(5)},
			want:     Usage{Total: 2, Used: 5, Remaining: 0, Percentage: 0, HasQuota: false},
		},
		{
			name:     "zero total avoids division by zero",
			schedule: &models.Schedule{MakeUpQuota: intPtr(0)},
			want:     Usage{Total: 0, Used: 0, Remaining: 0, Percentage: 0, HasQuota: false},
		},
		{
			name:     "negative inputs coerced to zero",
			schedule: &models.Schedule{MakeUpQuota: intPtr(-3), MakeUpUsed: intPtr(-1), MakeUpRemaining: intPtr(-2)},
			want:     Usage{Total: 0, Used: 0, Remaining: 0, Percentage: 0, HasQuota: false},
		},
		{
			name:     "explicit remaining above total clamps percentage",
			schedule: &models.Schedule{MakeUpQuota: intPtr(2), MakeUpRemaining: intPtr(5)},
			want:     Usage{Total: 2, Used: 0, Remaining: 5, Percentage: 100, HasQuota: true},
		},
		{
			name:     "nil schedule uses defaults",
			schedule: nil,
			want:     Usage{Total: 2, Used: 0, Remaining: 2, Percentage: 100, HasQuota: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.schedule)
			assert.Equal(t, tt.want.Total, got.Total)
			assert.Equal(t, tt.want.Used, got.Used)
			assert.Equal(t, tt.want.Remaining, got.Remaining)
			assert.InDelta(t, tt.want.Percentage, got.Percentage, 1e-9)
			assert.Equal(t, tt.want.HasQuota, got.HasQuota)
		})
	}
}

func TestCheckWithDefault(t *testing.T) {
	got := CheckWithDefault(&models.Schedule{}, 4)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 4, got.Remaining)

	// Explicit quota still wins over the configured default.
	got = CheckWithDefault(&models.Schedule{MakeUpQuota: intPtr(1)}, 4)
	assert.Equal(t, 1, got.Total)
}

func TestCanCreateMakeup(t *testing.T) {
	tests := []struct {
		name       string
		schedule   *models.Schedule
		session    *models.Session
		wantCreate bool
		wantReason string
	}{
		{
			name:       "quota available and clean session",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(1)},
			session:    &models.Session{},
			wantCreate: true,
		},
		{
			name:       "exhausted quota names used and total",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(2)},
			session:    &models.Session{},
			wantCreate: false,
			wantReason: "no makeup quota remaining (2/2 used)",
		},
		{
			name:       "quota check short-circuits session flags",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(2)},
			session:    &models.Session{HasMakeupSession: true, IsMakeup: true},
			wantCreate: false,
			wantReason: "no makeup quota remaining (2/2 used)",
		},
		{
			name:       "session already has a makeup",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2)},
			session:    &models.Session{HasMakeupSession: true},
			wantCreate: false,
			wantReason: "session already has a makeup session",
		},
		{
			name:       "has-makeup reported before is-makeup",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2)},
			session:    &models.Session{HasMakeupSession: true, IsMakeup: true},
			wantCreate: false,
			wantReason: "session already has a makeup session",
		},
		{
			name:       "makeup of a makeup",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2)},
			session:    &models.Session{IsMakeup: true},
			wantCreate: false,
			wantReason: "cannot create a makeup for a makeup session",
		},
		{
			name:       "nil session checks quota only",
			schedule:   &models.Schedule{MakeUpQuota: intPtr(2)},
			session:    nil,
			wantCreate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanCreateMakeup(tt.schedule, tt.session)
			assert.Equal(t, tt.wantCreate, got.CanCreate)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestCanCreateMakeupIsPure(t *testing.T) {
	schedule := &models.Schedule{MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(1)}
	session := &models.Session{HasMakeupSession: true}

	before := *schedule
	CanCreateMakeup(schedule, session)
	CanCreateMakeup(schedule, session)

	assert.Equal(t, before, *schedule)
	assert.True(t, session.HasMakeupSession)
}
