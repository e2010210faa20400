package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type courseService interface {
	Active(ctx context.Context) ([]models.Course, error)
	List(ctx context.Context, activeOnly bool) ([]models.Course, error)
	Get(ctx context.Context, code string) (*models.Course, error)
}

type roomService interface {
	List(ctx context.Context) ([]models.Room, error)
	FindOrCreateRoom(ctx context.Context, actor models.Actor, code string) (*models.Room, error)
}

// CatalogHandler exposes the course and room catalogues.
type CatalogHandler struct {
	courses courseService
	rooms   roomService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(courses courseService, rooms roomService) *CatalogHandler {
	return &CatalogHandler{courses: courses, rooms: rooms}
}

// Courses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param all query bool false "Include inactive courses"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	var (
		courses []models.Course
		err     error
	)
	if c.Query("all") == "true" {
		courses, err = h.courses.List(c.Request.Context(), false)
	} else {
		courses, err = h.courses.Active(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Course godoc
// @Summary Get course by code
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /courses/{code} [get]
func (h *CatalogHandler) Course(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Rooms godoc
// @Summary List rooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *CatalogHandler) Rooms(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

type createRoomRequest struct {
	Code string `json:"code" binding:"required,max=30"`
}

// CreateRoom godoc
// @Summary Register a room, returning the existing one when the code is known
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body createRoomRequest true "Room code"
// @Success 200 {object} response.Envelope
// @Router /rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.rooms.FindOrCreateRoom(c.Request.Context(), actorFromContext(c), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}
