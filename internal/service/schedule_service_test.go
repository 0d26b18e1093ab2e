package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

type mockFullScheduleStore struct {
	schedules map[int64]*models.Schedule
	slots     map[int64][]models.ScheduleTimeSlot
	nextID    int64
}

func newMockFullScheduleStore(schedules ...*models.Schedule) *mockFullScheduleStore {
	m := &mockFullScheduleStore{
		schedules: map[int64]*models.Schedule{},
		slots:     map[int64][]models.ScheduleTimeSlot{},
		nextID:    1,
	}
	for _, s := range schedules {
		m.schedules[s.ID] = s
		if s.ID >= m.nextID {
			m.nextID = s.ID + 1
		}
	}
	return m
}

func (m *mockFullScheduleStore) Create(ctx context.Context, schedule *models.Schedule, slots []models.ScheduleTimeSlot) error {
	schedule.ID = m.nextID
	m.nextID++
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = schedule.CreatedAt
	m.schedules[schedule.ID] = schedule
	for i := range slots {
		slots[i].ScheduleID = schedule.ID
	}
	m.slots[schedule.ID] = slots
	return nil
}

func (m *mockFullScheduleStore) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *mockFullScheduleStore) GetTimeSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleTimeSlot, error) {
	return m.slots[scheduleID], nil
}

func (m *mockFullScheduleStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	out := []models.Schedule{}
	for _, s := range m.schedules {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockFullScheduleStore) Update(ctx context.Context, schedule *models.Schedule) error {
	if _, ok := m.schedules[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	m.schedules[schedule.ID] = schedule
	return nil
}

func (m *mockFullScheduleStore) UpdateQuota(ctx context.Context, scheduleID int64, remaining int) error {
	s, ok := m.schedules[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	s.MakeUpRemaining = &remaining
	return nil
}

type mockSessionWriter struct {
	batches [][]models.Session
}

func (m *mockSessionWriter) CreateBatch(ctx context.Context, sessions []models.Session) error {
	m.batches = append(m.batches, sessions)
	return nil
}

func (m *mockSessionWriter) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var out []models.Session
	for _, batch := range m.batches {
		for _, sess := range batch {
			if filter.ScheduleID != 0 && sess.ScheduleID != filter.ScheduleID {
				continue
			}
			if filter.IsMakeup != nil && sess.IsMakeup != *filter.IsMakeup {
				continue
			}
			out = append(out, sess)
		}
	}
	return out, nil
}

func validCreateRequest() dto.CreateScheduleRequest {
	return dto.CreateScheduleRequest{
		ScheduleName:     "Adults A1 Evening",
		CourseID:         dto.FlexInt(7),
		RecurringPattern: "weekly",
		TotalHours:       dto.FlexInt(30),
		HoursPerSession:  dto.FlexInt(3),
		SessionPerWeek:   dto.FlexInt(2),
		StartDate:        "2025-01-06",
		TimeSlots: []dto.TimeSlotRequest{
			{DayOfWeek: "monday", StartTime: "18:00", EndTime: "21:00"},
			{DayOfWeek: "thursday", StartTime: "18:00", EndTime: "21:00"},
		},
	}
}

func newScheduleFixture(schedules ...*models.Schedule) (*ScheduleService, *mockFullScheduleStore, *mockSessionWriter, *mockQuotaCache, *mockAuditWriter) {
	store := newMockFullScheduleStore(schedules...)
	sessions := &mockSessionWriter{}
	cache := newMockQuotaCache()
	audit := &mockAuditWriter{}
	svc := NewScheduleService(store, sessions, cache, audit, nil, nil,
		config.MakeupConfig{DefaultQuota: 2, WarnThreshold: 1, QuotaCacheTTL: time.Minute})
	return svc, store, sessions, cache, audit
}

func TestScheduleCreate(t *testing.T) {
	svc, store, sessions, _, _ := newScheduleFixture()

	resp, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ScheduleStatusAssigned, resp.Status)
	require.NotNil(t, resp.TotalSessions)
	assert.Equal(t, 10, *resp.TotalSessions)
	require.NotNil(t, resp.EstimatedEndDate)
	assert.Equal(t, "2025-02-09", resp.EstimatedEndDate.Format("2006-01-02"))

	// New schedules start with the default allowance untouched.
	assert.Equal(t, 2, resp.Quota.Total)
	assert.Equal(t, 2, resp.Quota.Remaining)
	assert.True(t, resp.Quota.HasQuota)

	require.Len(t, store.slots[resp.ID], 2)

	// One generated session per slot occurrence until the target count.
	require.Len(t, sessions.batches, 1)
	generated := sessions.batches[0]
	require.Len(t, generated, 10)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), generated[0].SessionDate)
	assert.Equal(t, time.Monday, generated[0].SessionDate.Weekday())
	assert.Equal(t, time.Thursday, generated[1].SessionDate.Weekday())
	assert.Equal(t, 1, generated[0].SessionNumber)
	assert.Equal(t, 10, generated[9].SessionNumber)
	assert.Equal(t, 1, generated[0].WeekNumber)
	assert.Equal(t, 5, generated[9].WeekNumber)
	assert.Equal(t, models.SessionStatusScheduled, generated[0].Status)
}

func TestScheduleCreateValidationAccumulates(t *testing.T) {
	svc, _, sessions, _, _ := newScheduleFixture()

	req := validCreateRequest()
	req.ScheduleName = " "
	req.CourseID = 0
	req.StartDate = "2025-1-6"
	req.TimeSlots = nil

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	issues, ok := appErr.Details.([]quota.Issue)
	require.True(t, ok)
	assert.Len(t, issues, 4)
	assert.Empty(t, sessions.batches)
}

func TestSchedulePreview(t *testing.T) {
	svc, store, _, _, _ := newScheduleFixture()

	req := validCreateRequest()
	req.CourseID = 0
	resp := svc.Preview(req)

	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "course_id", resp.Issues[0].Field)
	require.NotNil(t, resp.Derived.TotalSessions)
	assert.Equal(t, 10, *resp.Derived.TotalSessions)

	// Preview never writes anything.
	assert.Empty(t, store.schedules)
}

func TestScheduleSessionsFiltersMakeups(t *testing.T) {
	svc, _, sessions, _, _ := newScheduleFixture()

	resp, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	makeup := models.Session{ScheduleID: resp.ID, IsMakeup: true, Status: models.SessionStatusScheduled}
	require.NoError(t, sessions.CreateBatch(context.Background(), []models.Session{makeup}))

	isMakeup := true
	onlyMakeups, err := svc.Sessions(context.Background(), resp.ID, models.SessionFilter{IsMakeup: &isMakeup})
	require.NoError(t, err)
	require.Len(t, onlyMakeups, 1)
	assert.True(t, onlyMakeups[0].IsMakeup)

	isMakeup = false
	regular, err := svc.Sessions(context.Background(), resp.ID, models.SessionFilter{IsMakeup: &isMakeup})
	require.NoError(t, err)
	assert.Len(t, regular, 10)
}

func TestQuotaSnapshotCaches(t *testing.T) {
	schedule := &models.Schedule{ID: 11, ScheduleName: "Adults A1 Evening", MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(1)}
	svc, _, _, cache, _ := newScheduleFixture(schedule)

	first, err := svc.QuotaSnapshot(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quota.Remaining)
	assert.Equal(t, float64(50), first.Quota.Percentage)
	assert.Equal(t, 0, cache.hits)

	second, err := svc.QuotaSnapshot(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, first.Quota, second.Quota)
	assert.Equal(t, 1, cache.hits)
}

func TestQuotaSnapshotNotFound(t *testing.T) {
	svc, _, _, _, _ := newScheduleFixture()

	_, err := svc.QuotaSnapshot(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOverrideQuota(t *testing.T) {
	schedule := &models.Schedule{ID: 11, ScheduleName: "Adults A1 Evening", MakeUpQuota: intPtr(2), MakeUpUsed: intPtr(2)}
	svc, store, _, cache, audit := newScheduleFixture(schedule)

	remaining := dto.FlexInt(3)
	resp, err := svc.OverrideQuota(context.Background(), 11, 9, dto.UpdateQuotaRequest{
		MakeUpRemaining: &remaining,
		Reason:          "compensation for holiday closure",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.OldRemaining)
	assert.Equal(t, 3, resp.NewRemaining)
	// The explicit remaining wins even though used still equals quota.
	assert.Equal(t, 3, resp.Quota.Remaining)
	assert.True(t, resp.Quota.HasQuota)
	require.NotNil(t, store.schedules[11].MakeUpRemaining)
	assert.Equal(t, 3, *store.schedules[11].MakeUpRemaining)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditQuotaOverride, audit.entries[0].Action)
	assert.Equal(t, "compensation for holiday closure", audit.entries[0].Reason)
	assert.Contains(t, cache.invalidated, "quota:schedule:11")
}

func TestOverrideQuotaRequiresReason(t *testing.T) {
	schedule := &models.Schedule{ID: 11, MakeUpQuota: intPtr(2)}
	svc, _, _, _, _ := newScheduleFixture(schedule)

	remaining := dto.FlexInt(3)
	_, err := svc.OverrideQuota(context.Background(), 11, 9, dto.UpdateQuotaRequest{MakeUpRemaining: &remaining})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.OverrideQuota(context.Background(), 11, 9, dto.UpdateQuotaRequest{Reason: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
