package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/middleware"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
)

type scheduleServiceMock struct {
	previewResp dto.SchedulePreviewResponse
	createResp  *dto.ScheduleResponse
	createErr   error
	getResp     *dto.ScheduleResponse
	quotaResp   *dto.QuotaSnapshot
	overrideErr error

	lastOverride      dto.UpdateQuotaRequest
	lastActorID       int64
	lastSessionFilter models.SessionFilter
}

func (m *scheduleServiceMock) Preview(req dto.CreateScheduleRequest) dto.SchedulePreviewResponse {
	return m.previewResp
}

func (m *scheduleServiceMock) Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id int64) (*dto.ScheduleResponse, error) {
	return m.getResp, nil
}

func (m *scheduleServiceMock) List(ctx context.Context, filter models.ScheduleFilter) ([]dto.ScheduleResponse, *models.Pagination, error) {
	return nil, nil, nil
}

func (m *scheduleServiceMock) Update(ctx context.Context, id int64, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	return m.getResp, nil
}

func (m *scheduleServiceMock) Sessions(ctx context.Context, id int64, filter models.SessionFilter) ([]models.Session, error) {
	m.lastSessionFilter = filter
	return []models.Session{}, nil
}

func (m *scheduleServiceMock) QuotaSnapshot(ctx context.Context, id int64) (*dto.QuotaSnapshot, error) {
	return m.quotaResp, nil
}

func (m *scheduleServiceMock) OverrideQuota(ctx context.Context, id int64, actorID int64, req dto.UpdateQuotaRequest) (*dto.UpdateQuotaResponse, error) {
	m.lastOverride = req
	m.lastActorID = actorID
	if m.overrideErr != nil {
		return nil, m.overrideErr
	}
	return &dto.UpdateQuotaResponse{ScheduleID: id, NewRemaining: req.MakeUpRemaining.Int()}, nil
}

func TestScheduleHandlerPreview(t *testing.T) {
	total := 10
	end := "2025-02-09"
	svc := &scheduleServiceMock{previewResp: dto.SchedulePreviewResponse{
		Issues:  []quota.Issue{},
		Derived: quota.Derived{TotalSessions: &total, EstimatedEndDate: &end},
	}}
	handler := NewScheduleHandler(svc)

	c, w := testContext(t, http.MethodPost, "/schedules/preview", dto.CreateScheduleRequest{ScheduleName: "Adults A1"})

	handler.Preview(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.SchedulePreviewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Derived.TotalSessions)
	assert.Equal(t, 10, *envelope.Data.Derived.TotalSessions)
}

func TestScheduleHandlerCreateInvalidJSON(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})

	c, w := testContext(t, http.MethodPost, "/schedules", nil)

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerSessionsFilter(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc)

	c, w := testContext(t, http.MethodGet, "/schedules/11/sessions?status=cancelled&is_makeup=true&from=2025-01-06&to=2025-02-09", nil)
	c.Params = gin.Params{{Key: "id", Value: "11"}}

	handler.Sessions(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", svc.lastSessionFilter.Status)
	require.NotNil(t, svc.lastSessionFilter.IsMakeup)
	assert.True(t, *svc.lastSessionFilter.IsMakeup)
	assert.Equal(t, "2025-01-06", svc.lastSessionFilter.FromDate)
	assert.Equal(t, "2025-02-09", svc.lastSessionFilter.ToDate)
}

func TestScheduleHandlerUpdateQuota(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc)

	remaining := dto.FlexInt(3)
	c, w := testContext(t, http.MethodPatch, "/schedules/11/quota", dto.UpdateQuotaRequest{
		MakeUpRemaining: &remaining,
		Reason:          "manager approved extra makeup",
	})
	c.Params = gin.Params{{Key: "id", Value: "11"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.UpdateQuota(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), svc.lastActorID)
	assert.Equal(t, "manager approved extra makeup", svc.lastOverride.Reason)
}

func TestScheduleHandlerUpdateQuotaRequiresAuth(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})

	remaining := dto.FlexInt(3)
	c, w := testContext(t, http.MethodPatch, "/schedules/11/quota", dto.UpdateQuotaRequest{MakeUpRemaining: &remaining, Reason: "x"})
	c.Params = gin.Params{{Key: "id", Value: "11"}}

	handler.UpdateQuota(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScheduleHandlerUpdateQuotaMissingReason(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})

	remaining := dto.FlexInt(3)
	c, w := testContext(t, http.MethodPatch, "/schedules/11/quota", map[string]interface{}{"make_up_remaining": remaining})
	c.Params = gin.Params{{Key: "id", Value: "11"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.UpdateQuota(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
