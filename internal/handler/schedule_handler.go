package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
	"github.com/english-korat/ekls-api/pkg/response"
)

type scheduleService interface {
	Preview(req dto.CreateScheduleRequest) dto.SchedulePreviewResponse
	Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, id int64) (*dto.ScheduleResponse, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]dto.ScheduleResponse, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Sessions(ctx context.Context, id int64, filter models.SessionFilter) ([]models.Session, error)
	QuotaSnapshot(ctx context.Context, id int64) (*dto.QuotaSnapshot, error)
	OverrideQuota(ctx context.Context, id int64, actorID int64, req dto.UpdateQuotaRequest) (*dto.UpdateQuotaResponse, error)
}

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param courseId query int false "Filter by course"
// @Param groupId query int false "Filter by group"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var filter models.ScheduleFilter
	if courseID, err := strconv.ParseInt(c.Query("courseId"), 10, 64); err == nil {
		filter.CourseID = courseID
	}
	if groupID, err := strconv.ParseInt(c.Query("groupId"), 10, 64); err == nil {
		filter.GroupID = groupID
	}
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule by ID
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create schedule
// @Description Validate the form, derive session counts and create the schedule with its sessions
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Preview godoc
// @Summary Preview schedule form validation and derived fields
// @Description Run validation and field derivation without persisting anything
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/preview [post]
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.Preview(req), nil)
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body dto.CreateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Sessions godoc
// @Summary List sessions of a schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Param status query string false "Filter by status"
// @Param is_makeup query bool false "Filter by makeup flag"
// @Param from query string false "Earliest session date (YYYY-MM-DD)"
// @Param to query string false "Latest session date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/sessions [get]
func (h *ScheduleHandler) Sessions(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SessionFilter{
		Status:   c.Query("status"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}
	if raw := c.Query("is_makeup"); raw != "" {
		if isMakeup, perr := strconv.ParseBool(raw); perr == nil {
			filter.IsMakeup = &isMakeup
		}
	}
	sessions, err := h.service.Sessions(c.Request.Context(), id, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Quota godoc
// @Summary Get makeup quota usage for a schedule
// @Tags Quota
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/quota [get]
func (h *ScheduleHandler) Quota(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	snapshot, err := h.service.QuotaSnapshot(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// UpdateQuota godoc
// @Summary Override remaining makeup quota for a schedule
// @Description Admin override of the remaining makeup allowance, recorded in the audit log
// @Tags Quota
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body dto.UpdateQuotaRequest true "Quota payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/{id}/quota [patch]
func (h *ScheduleHandler) UpdateQuota(c *gin.Context) {
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
	var req dto.UpdateQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.OverrideQuota(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
