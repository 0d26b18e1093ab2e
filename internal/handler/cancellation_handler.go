package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
	"github.com/english-korat/ekls-api/pkg/response"
)

type cancellationService interface {
	Request(ctx context.Context, sessionID, requestedBy int64, req dto.RequestCancellationRequest) (*models.CancellationRequest, error)
	Approve(ctx context.Context, sessionID, decidedBy int64) (*dto.ApproveCancellationResponse, error)
	Reject(ctx context.Context, sessionID, decidedBy int64, req dto.RejectCancellationRequest) (*models.CancellationRequest, error)
	BulkApprove(ctx context.Context, decidedBy int64, req dto.BulkApproveRequest) (*dto.BulkApproveResponse, error)
	List(ctx context.Context, status string) ([]models.CancellationRequest, error)
}

// CancellationHandler exposes the session cancellation workflow.
type CancellationHandler struct {
	service cancellationService
}

// NewCancellationHandler constructs handler.
func NewCancellationHandler(svc cancellationService) *CancellationHandler {
	return &CancellationHandler{service: svc}
}

// Request godoc
// @Summary Request cancellation of a session
// @Description Puts the session into pending_cancellation and notifies admins
// @Tags Cancellations
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param payload body dto.RequestCancellationRequest true "Cancellation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/cancellation [post]
func (h *CancellationHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RequestCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "reason is required"))
		return
	}
	request, err := h.service.Request(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Approve godoc
// @Summary Approve a pending cancellation
// @Description Consumes one makeup quota unit, cancels the session and reports affected students
// @Tags Cancellations
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /sessions/{id}/cancellation/approve [post]
func (h *CancellationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Approve(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a pending cancellation
// @Description Restores the session to scheduled and notifies the requester
// @Tags Cancellations
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param payload body dto.RejectCancellationRequest false "Rejection note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/cancellation/reject [post]
func (h *CancellationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RejectCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Reject(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// BulkApprove godoc
// @Summary Approve multiple pending cancellations
// @Description Processes each session independently; failures are reported per session
// @Tags Cancellations
// @Accept json
// @Produce json
// @Param payload body dto.BulkApproveRequest true "Session IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cancellations/bulk-approve [post]
func (h *CancellationHandler) BulkApprove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "session_ids is required"))
		return
	}
	result, err := h.service.BulkApprove(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List cancellation requests
// @Tags Cancellations
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Success 200 {object} response.Envelope
// @Router /cancellations [get]
func (h *CancellationHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
