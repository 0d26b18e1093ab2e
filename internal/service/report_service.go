package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
	"github.com/english-korat/ekls-api/pkg/export"
)

type quotaUsageReader interface {
	QuotaUsage(ctx context.Context) ([]models.QuotaUsageRow, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type reportSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error)
}

// QuotaUsageReport is the metadata returned after rendering a report.
type QuotaUsageReport struct {
	ReportID    string    `json:"report_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	RowCount    int       `json:"row_count"`
}

// ReportDownload bundles an opened report file for streaming.
type ReportDownload struct {
	File     *os.File
	Filename string
	MimeType string
}

// ReportService renders the per-schedule quota usage report to CSV or
// PDF and hands out signed download links.
type ReportService struct {
	schedules quotaUsageReader
	storage   reportStorage
	signer    reportSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	cfg       config.MakeupConfig
	apiPrefix string
}

// NewReportService constructs the service.
func NewReportService(schedules quotaUsageReader, storage reportStorage, signer reportSigner, logger *zap.Logger, cfg config.MakeupConfig, apiPrefix string) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &ReportService{
		schedules: schedules,
		storage:   storage,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		cfg:       cfg,
		apiPrefix: apiPrefix,
	}
}

// GenerateQuotaUsage renders the report in the requested format, stores
// the file and returns a signed download URL.
func (s *ReportService) GenerateQuotaUsage(ctx context.Context, format string) (*QuotaUsageReport, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	rows, err := s.schedules.QuotaUsage(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quota usage")
	}

	dataset := export.Dataset{
		Title:       "Makeup Quota Usage",
		GeneratedAt: time.Now().UTC(),
		Headers:     []string{"Schedule ID", "Schedule Name", "Quota", "Used", "Remaining", "Usage %"},
		Rows:        make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		usage := quota.CheckWithDefault(&models.Schedule{
			MakeUpQuota:     row.MakeUpQuota,
			MakeUpUsed:      row.MakeUpUsed,
			MakeUpRemaining: row.MakeUpRemaining,
		}, s.cfg.DefaultQuota)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Schedule ID":   strconv.FormatInt(row.ScheduleID, 10),
			"Schedule Name": row.ScheduleName,
			"Quota":         strconv.Itoa(usage.Total),
			"Used":          strconv.Itoa(usage.Used),
			"Remaining":     strconv.Itoa(usage.Remaining),
			"Usage %":       fmt.Sprintf("%.0f", usage.Percentage),
		})
	}

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	reportID := uuid.NewString()
	filename := fmt.Sprintf("quota-usage-%s.%s", reportID, format)
	if _, err := s.storage.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(reportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("quota usage report generated",
		zap.String("report_id", reportID),
		zap.String("format", format),
		zap.Int("rows", len(rows)))

	return &QuotaUsageReport{
		ReportID:    reportID,
		Format:      format,
		DownloadURL: fmt.Sprintf("%s/reports/download?token=%s", s.apiPrefix, token),
		ExpiresAt:   expiresAt,
		RowCount:    len(rows),
	}, nil
}

// Download resolves a signed token to the stored report file.
func (s *ReportService) Download(ctx context.Context, token string) (*ReportDownload, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not found")
	}

	mime := "text/csv"
	if len(relPath) > 4 && relPath[len(relPath)-4:] == ".pdf" {
		mime = "application/pdf"
	}
	return &ReportDownload{File: file, Filename: relPath, MimeType: mime}, nil
}
