package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/english-korat/ekls-api/internal/service"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
	"github.com/english-korat/ekls-api/pkg/response"
)

type reportService interface {
	GenerateQuotaUsage(ctx context.Context, format string) (*service.QuotaUsageReport, error)
	Download(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// QuotaUsage godoc
// @Summary Generate the per-schedule quota usage report
// @Tags Reports
// @Produce json
// @Param format query string true "Report format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/quota-usage [get]
func (h *ReportHandler) QuotaUsage(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	report, err := h.service.GenerateQuotaUsage(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Download godoc
// @Summary Download a generated report
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), download.MimeType, download.File, nil)
}
