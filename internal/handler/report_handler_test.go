package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/middleware"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
	lastSession *models.Session
	lastRequest dto.ReportRequest
}

func (m *reportServiceMock) CreateJob(ctx context.Context, session *models.Session, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	m.lastSession = session
	m.lastRequest = req
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, session *models.Session, id string) (*dto.ReportStatusResponse, error) {
	m.lastSession = session
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

type rendererMock struct {
	params models.ReportJobParams
	format models.ReportFormat
}

func (r *rendererMock) Render(ctx context.Context, reportType models.ReportType, format models.ReportFormat, params models.ReportJobParams) ([]byte, error) {
	r.params = params
	r.format = format
	return []byte("a;b\n"), nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func adminSession() *models.Session {
	return &models.Session{UserID: "admin", Roles: []models.Role{models.RoleAdmin}}
}

func TestReportHandlerGenerateReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued},
	}
	handler := NewReportHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ReportRequest{Type: models.ReportTypeFinance, Format: models.ReportFormatCSV, PairID: "p1"})
	c, w := newGinContext(http.MethodPost, "/reports", payload)
	c.Set(middleware.ContextSessionKey, adminSession())

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, mockSvc.lastSession)
	assert.Equal(t, "admin", mockSvc.lastSession.UserID)
	assert.Equal(t, "p1", mockSvc.lastRequest.PairID)
}

func TestReportHandlerGenerateRejectsBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/reports", []byte("{"))
	handler.GenerateReport(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerReportStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextSessionKey, adminSession())

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerStatusForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{statusErr: appErrors.ErrForbidden}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.ReportStatus(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownloadReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "report*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("data")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:      file,
			Filename:  "report.csv",
			Format:    models.ReportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/download?token=abc", nil)

	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.csv")
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestReportHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/download", nil)
	handler.DownloadReport(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	renderer := &rendererMock{}
	handler := NewReportHandler(&reportServiceMock{}, renderer)

	c, w := newGinContext(http.MethodGet, "/exports/financeiro?format=pdf&pairId=p1&from=2026-01-01&to=2026-01-31", nil)
	c.Params = gin.Params{{Key: "type", Value: "financeiro"}}
	c.Set(middleware.ContextSessionKey, adminSession())

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportFormatPDF, renderer.format)
	assert.Equal(t, "p1", renderer.params.PairID)
	require.NotNil(t, renderer.params.To)
	assert.Equal(t, 31, renderer.params.To.Day())
	assert.Equal(t, 23, renderer.params.To.Hour())
}

func TestReportHandlerExportChecksPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, &rendererMock{})
	viewer := &models.Session{UserID: "v", Roles: []models.Role{models.RoleViewer}}

	cases := []struct {
		path   string
		kind   string
		status int
	}{
		{"/exports/financeiro", "financeiro", http.StatusForbidden},
		{"/exports/notas", "notas", http.StatusNotFound},
		{"/exports/financeiro?format=xlsx", "financeiro", http.StatusBadRequest},
	}
	for i, tc := range cases {
		c, w := newGinContext(http.MethodGet, tc.path, nil)
		c.Params = gin.Params{{Key: "type", Value: tc.kind}}
		if i == 0 {
			c.Set(middleware.ContextSessionKey, viewer)
		} else {
			c.Set(middleware.ContextSessionKey, adminSession())
		}
		handler.Export(c)
		assert.Equal(t, tc.status, w.Code, tc.path)
	}
}
