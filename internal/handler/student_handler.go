package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.UpdateStudentRequest) (*models.Student, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, req service.UpdateStatusRequest) (*models.Student, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type documentService interface {
	Upload(ctx context.Context, actor models.Actor, studentID string, r io.Reader) (*models.Student, error)
	Link(ctx context.Context, studentID string) (*service.DocumentLink, error)
	Open(token string) (*os.File, string, error)
}

type studentPrinter interface {
	EnrollmentForm(ctx context.Context, studentID string) ([]byte, error)
	Invoice(ctx context.Context, studentID string) ([]byte, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students  studentService
	documents documentService
	printer   studentPrinter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, documents documentService, printer studentPrinter) *StudentHandler {
	return &StudentHandler{students: students, documents: documents, printer: printer}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, phone, BI or student number"
// @Param pairId query string false "Filter by course pair"
// @Param classId query string false "Filter by class"
// @Param courseCode query string false "Filter by course"
// @Param status query string false "inscrito, confirmado or cancelado"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		PairID:     c.Query("pairId"),
		ClassID:    c.Query("classId"),
		CourseCode: c.Query("courseCode"),
		Status:     models.StudentStatus(c.Query("status")),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update student fields
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateStatus godoc
// @Summary Change student status
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *StudentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.UpdateStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student and free the seat
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadDocument godoc
// @Summary Upload the identity document of a student
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param file formData file true "PDF, JPEG or PNG"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /students/{id}/document [post]
func (h *StudentHandler) UploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	student, err := h.documents.Upload(c.Request.Context(), actorFromContext(c), c.Param("id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// DocumentLink godoc
// @Summary Signed download link for the student's document
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/document [get]
func (h *StudentHandler) DocumentLink(c *gin.Context) {
	link, err := h.documents.Link(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadDocument godoc
// @Summary Download a student document with a signed token
// @Tags Students
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /documents/download [get]
func (h *StudentHandler) DownloadDocument(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, filename, err := h.documents.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	serveFile(c, file, filename, "")
}

// EnrollmentForm godoc
// @Summary Printable enrollment form
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/form [get]
func (h *StudentHandler) EnrollmentForm(c *gin.Context) {
	payload, err := h.printer.EnrollmentForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("ficha-%s.pdf", c.Param("id")), "application/pdf", payload)
}

// Invoice godoc
// @Summary Printable payment receipt
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /students/{id}/invoice [get]
func (h *StudentHandler) Invoice(c *gin.Context) {
	payload, err := h.printer.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("factura-%s.pdf", c.Param("id")), "application/pdf", payload)
}

// serveFile streams an open file as an attachment. The content type is sniffed when not given.
func serveFile(c *gin.Context, file *os.File, filename, contentType string) {
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
		if detected, err := mimetype.DetectFile(file.Name()); err == nil {
			contentType = detected.String()
		}
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}
