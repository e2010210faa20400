package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*dto.EnrollmentResult, error)
	OfferablePairs(ctx context.Context) ([]dto.PublicPair, error)
	Success(ctx context.Context, studentID string) (*dto.EnrollmentSuccess, error)
}

// EnrollmentHandler serves the enrollment form, used both by staff and by the public page.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Pairs godoc
// @Summary Active course pairs open for enrollment
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/pairs [get]
func (h *EnrollmentHandler) Pairs(c *gin.Context) {
	pairs, err := h.service.OfferablePairs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs, nil)
}

// Enroll godoc
// @Summary Enroll a student in a turma
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "turma cheia"
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Enroll(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Success godoc
// @Summary Enrollment confirmation data
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /public/enrollments/{id} [get]
func (h *EnrollmentHandler) Success(c *gin.Context) {
	result, err := h.service.Success(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
