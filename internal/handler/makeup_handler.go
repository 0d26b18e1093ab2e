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

type makeupService interface {
	ListNeedingMakeup(ctx context.Context) ([]dto.NeedingMakeupItem, error)
	CreateMakeup(ctx context.Context, sessionID, actorID int64, req dto.CreateMakeupRequest) (*models.Session, error)
}

// MakeupHandler exposes makeup session endpoints.
type MakeupHandler struct {
	service makeupService
}

// NewMakeupHandler constructs handler.
func NewMakeupHandler(svc makeupService) *MakeupHandler {
	return &MakeupHandler{service: svc}
}

// ListNeedingMakeup godoc
// @Summary List cancelled sessions awaiting a makeup
// @Description Cancelled sessions that consumed quota but have no compensating session yet, with eligibility verdicts
// @Tags Makeups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/needing-makeup [get]
func (h *MakeupHandler) ListNeedingMakeup(c *gin.Context) {
	items, err := h.service.ListNeedingMakeup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create a makeup session for a cancelled session
// @Description Applies the eligibility gate (quota, existing makeup, makeup-of-makeup) before creating the session
// @Tags Makeups
// @Accept json
// @Produce json
// @Param id path int true "Cancelled session ID"
// @Param payload body dto.CreateMakeupRequest true "Makeup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /sessions/{id}/makeup [post]
func (h *MakeupHandler) Create(c *gin.Context) {
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
	var req dto.CreateMakeupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.CreateMakeup(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}
