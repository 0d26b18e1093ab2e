package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/middleware"
	"github.com/english-korat/ekls-api/internal/models"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

type cancellationServiceMock struct {
	requestResp *models.CancellationRequest
	requestErr  error
	approveResp *dto.ApproveCancellationResponse
	approveErr  error
	bulkResp    *dto.BulkApproveResponse
	listResp    []models.CancellationRequest

	lastSessionID int64
	lastActorID   int64
}

func (m *cancellationServiceMock) Request(ctx context.Context, sessionID, requestedBy int64, req dto.RequestCancellationRequest) (*models.CancellationRequest, error) {
	m.lastSessionID = sessionID
	m.lastActorID = requestedBy
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	return m.requestResp, nil
}

func (m *cancellationServiceMock) Approve(ctx context.Context, sessionID, decidedBy int64) (*dto.ApproveCancellationResponse, error) {
	m.lastSessionID = sessionID
	m.lastActorID = decidedBy
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return m.approveResp, nil
}

func (m *cancellationServiceMock) Reject(ctx context.Context, sessionID, decidedBy int64, req dto.RejectCancellationRequest) (*models.CancellationRequest, error) {
	m.lastSessionID = sessionID
	return m.requestResp, nil
}

func (m *cancellationServiceMock) BulkApprove(ctx context.Context, decidedBy int64, req dto.BulkApproveRequest) (*dto.BulkApproveResponse, error) {
	return m.bulkResp, nil
}

func (m *cancellationServiceMock) List(ctx context.Context, status string) ([]models.CancellationRequest, error) {
	return m.listResp, nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 7, Email: "admin@englishkorat.com", Role: models.RoleAdmin}
}

func testContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestCancellationHandlerRequest(t *testing.T) {
	svc := &cancellationServiceMock{requestResp: &models.CancellationRequest{ID: 1, SessionID: 42, Status: "pending"}}
	handler := NewCancellationHandler(svc)

	c, w := testContext(t, http.MethodPost, "/sessions/42/cancellation", dto.RequestCancellationRequest{Reason: "teacher sick"})
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Request(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(42), svc.lastSessionID)
	assert.Equal(t, int64(7), svc.lastActorID)
}

func TestCancellationHandlerRequestMissingReason(t *testing.T) {
	handler := NewCancellationHandler(&cancellationServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/42/cancellation", map[string]string{})
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Request(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancellationHandlerRequestUnauthenticated(t *testing.T) {
	handler := NewCancellationHandler(&cancellationServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/42/cancellation", dto.RequestCancellationRequest{Reason: "x"})
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.Request(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancellationHandlerApproveQuotaExhausted(t *testing.T) {
	svc := &cancellationServiceMock{approveErr: appErrors.Clone(appErrors.ErrQuotaExhausted, "no makeup quota remaining (2/2 used)")}
	handler := NewCancellationHandler(svc)

	c, w := testContext(t, http.MethodPost, "/sessions/42/cancellation/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Approve(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "no makeup quota remaining (2/2 used)", envelope.Error.Message)
}

func TestCancellationHandlerApproveInvalidID(t *testing.T) {
	handler := NewCancellationHandler(&cancellationServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/abc/cancellation/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Approve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancellationHandlerBulkApprove(t *testing.T) {
	svc := &cancellationServiceMock{bulkResp: &dto.BulkApproveResponse{
		Summary: dto.BulkApproveSummary{TotalRequested: 2, Successful: 1, Failed: 1},
	}}
	handler := NewCancellationHandler(svc)

	c, w := testContext(t, http.MethodPost, "/sessions/cancellations/bulk-approve", dto.BulkApproveRequest{SessionIDs: []int64{1, 2}})
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.BulkApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCancellationHandlerBulkApproveEmptyBody(t *testing.T) {
	handler := NewCancellationHandler(&cancellationServiceMock{})

	c, w := testContext(t, http.MethodPost, "/sessions/cancellations/bulk-approve", map[string]interface{}{"session_ids": []int64{}})
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.BulkApprove(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
