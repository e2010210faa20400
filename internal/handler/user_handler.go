package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type userService interface {
	List(ctx context.Context) ([]models.UserProfile, error)
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	SetRoles(ctx context.Context, actor models.Actor, userID string, req service.SetRolesRequest) (*models.UserProfile, error)
}

// UserHandler manages portal users and their roles.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// Me godoc
// @Summary Current session with its roles and permissions
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, dto.SessionResponse{
		UserID:      session.UserID,
		Email:       session.Email,
		Roles:       session.Roles,
		Permissions: models.PermissionsFor(session.Roles),
	}, nil)
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Get godoc
// @Summary Get user with roles
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// SetRoles godoc
// @Summary Replace the roles of a user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.SetRolesRequest true "Roles"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/roles [put]
func (h *UserHandler) SetRoles(c *gin.Context) {
	var req service.SetRolesRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.SetRoles(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
