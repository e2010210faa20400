package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, session *models.Session, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, session *models.Session, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

type reportRenderer interface {
	Render(ctx context.Context, reportType models.ReportType, format models.ReportFormat, params models.ReportJobParams) ([]byte, error)
}

// ReportHandler exposes background report jobs and synchronous exports.
type ReportHandler struct {
	service  reportService
	renderer reportRenderer
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService, renderer reportRenderer) *ReportHandler {
	return &ReportHandler{service: service, renderer: renderer}
}

// GenerateReport godoc
// @Summary Queue a report job
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ReportStatus godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// DownloadReport godoc
// @Summary Download a finished report with a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /reports/download [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()
	serveFile(c, download.File, download.Filename, contentTypeFor(download.Format))
}

// Export godoc
// @Summary Render a report synchronously
// @Tags Reports
// @Produce octet-stream
// @Param type path string true "financeiro, alunos or auditoria"
// @Param format query string false "csv (default) or pdf"
// @Param pairId query string false "Course pair"
// @Param status query string false "Student status"
// @Param table query string false "Audit table"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /exports/{type} [get]
func (h *ReportHandler) Export(c *gin.Context) {
	reportType := models.ReportType(c.Param("type"))
	if !reportType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown report"))
		return
	}
	if !sessionFromContext(c).CanAccess(reportType.Permission()) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	format := models.ReportFormat(c.DefaultQuery("format", string(models.ReportFormatCSV)))
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	params := models.ReportJobParams{
		PairID:    c.Query("pairId"),
		Status:    models.StudentStatus(c.Query("status")),
		TableName: c.Query("table"),
	}
	var err error
	if params.From, err = dateQuery(c, "from", false); err != nil {
		response.Error(c, err)
		return
	}
	if params.To, err = dateQuery(c, "to", true); err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.renderer.Render(c.Request.Context(), reportType, format, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.%s", reportType, time.Now().Format("20060102"), format)
	response.Attachment(c, filename, contentTypeFor(format), payload)
}
