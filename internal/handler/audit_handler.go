package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type auditReader interface {
	ListLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
	ListViews(ctx context.Context, filter models.AuditFilter) ([]models.AuditView, *models.Pagination, error)
}

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service auditReader
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(service auditReader) *AuditHandler {
	return &AuditHandler{service: service}
}

// Logs godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param userId query string false "Acting user"
// @Param table query string false "Table name"
// @Param action query string false "INSERT, UPDATE or DELETE"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit/logs [get]
func (h *AuditHandler) Logs(c *gin.Context) {
	filter, ok := auditFilter(c)
	if !ok {
		return
	}
	logs, pagination, err := h.service.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Views godoc
// @Summary List audit view entries
// @Tags Audit
// @Produce json
// @Param userId query string false "Viewing user"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /audit/views [get]
func (h *AuditHandler) Views(c *gin.Context) {
	filter, ok := auditFilter(c)
	if !ok {
		return
	}
	views, pagination, err := h.service.ListViews(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

func auditFilter(c *gin.Context) (models.AuditFilter, bool) {
	filter := models.AuditFilter{
		UserID:    c.Query("userId"),
		TableName: c.Query("table"),
		Action:    c.Query("action"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	if filter.From, err = dateQuery(c, "from", false); err != nil {
		response.Error(c, err)
		return filter, false
	}
	if filter.To, err = dateQuery(c, "to", true); err != nil {
		response.Error(c, err)
		return filter, false
	}
	return filter, true
}
