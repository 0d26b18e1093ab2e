package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
	"github.com/english-korat/ekls-api/pkg/storage"
)

type mockQuotaUsageReader struct {
	rows []models.QuotaUsageRow
}

func (m *mockQuotaUsageReader) QuotaUsage(ctx context.Context) ([]models.QuotaUsageRow, error) {
	return m.rows, nil
}

func newReportFixture(t *testing.T, rows []models.QuotaUsageRow) *ReportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	return NewReportService(&mockQuotaUsageReader{rows: rows}, store, signer, nil,
		config.MakeupConfig{DefaultQuota: 2}, "/api/v1")
}

func TestReportQuotaUsageCSVRoundTrip(t *testing.T) {
	used := 2
	svc := newReportFixture(t, []models.QuotaUsageRow{
		{ScheduleID: 11, ScheduleName: "Adults A1 Evening", MakeUpUsed: &used},
		{ScheduleID: 12, ScheduleName: "Kids B2 Saturday"},
	})

	report, err := svc.GenerateQuotaUsage(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", report.Format)
	assert.Equal(t, 2, report.RowCount)
	require.Contains(t, report.DownloadURL, "/api/v1/reports/download?token=")

	token := report.DownloadURL[strings.Index(report.DownloadURL, "token=")+len("token="):]
	download, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, "text/csv", download.MimeType)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	body := string(content)
	// BOM prefix keeps spreadsheet imports of Thai schedule names intact.
	assert.True(t, strings.HasPrefix(body, "﻿"))
	assert.Contains(t, body, "Schedule ID,Schedule Name,Quota,Used,Remaining,Usage %")
	assert.Contains(t, body, "11,Adults A1 Evening,2,2,0,0")
	assert.Contains(t, body, "12,Kids B2 Saturday,2,0,2,100")
}

func TestReportQuotaUsagePDF(t *testing.T) {
	svc := newReportFixture(t, []models.QuotaUsageRow{
		{ScheduleID: 11, ScheduleName: "Adults A1 Evening"},
	})

	report, err := svc.GenerateQuotaUsage(context.Background(), "pdf")
	require.NoError(t, err)

	token := report.DownloadURL[strings.Index(report.DownloadURL, "token=")+len("token="):]
	download, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, "application/pdf", download.MimeType)
	header := make([]byte, 5)
	_, err = io.ReadFull(download.File, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(header))
}

func TestReportQuotaUsageRejectsUnknownFormat(t *testing.T) {
	svc := newReportFixture(t, nil)

	_, err := svc.GenerateQuotaUsage(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadRejectsBadToken(t *testing.T) {
	svc := newReportFixture(t, nil)

	_, err := svc.Download(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
