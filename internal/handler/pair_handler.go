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

type pairService interface {
	LoadAllPairs(ctx context.Context) ([]dto.PairView, error)
	GetPair(ctx context.Context, id string) (*dto.PairView, error)
	CreatePair(ctx context.Context, actor models.Actor, req service.CreatePairRequest) (*dto.PairView, error)
	UpdatePair(ctx context.Context, actor models.Actor, id string, req service.UpdatePairRequest) (*dto.PairView, error)
	DeletePair(ctx context.Context, actor models.Actor, id string) ([]dto.PairView, error)
	ToggleActive(ctx context.Context, actor models.Actor, id string) (*dto.PairView, error)
}

// PairHandler exposes course pair administration.
type PairHandler struct {
	service pairService
}

// NewPairHandler constructs PairHandler.
func NewPairHandler(service pairService) *PairHandler {
	return &PairHandler{service: service}
}

// List godoc
// @Summary List course pairs with both classes and their students
// @Tags Pairs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pairs [get]
func (h *PairHandler) List(c *gin.Context) {
	pairs, err := h.service.LoadAllPairs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs, nil)
}

// Get godoc
// @Summary Get course pair
// @Tags Pairs
// @Produce json
// @Param id path string true "Pair ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pairs/{id} [get]
func (h *PairHandler) Get(c *gin.Context) {
	pair, err := h.service.GetPair(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pair, nil)
}

// Create godoc
// @Summary Create course pair with turma A and B
// @Tags Pairs
// @Accept json
// @Produce json
// @Param payload body service.CreatePairRequest true "Pair payload"
// @Success 201 {object} response.Envelope
// @Router /pairs [post]
func (h *PairHandler) Create(c *gin.Context) {
	var req service.CreatePairRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.service.CreatePair(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pair)
}

// Update godoc
// @Summary Update course pair
// @Tags Pairs
// @Accept json
// @Produce json
// @Param id path string true "Pair ID"
// @Param payload body service.UpdatePairRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /pairs/{id} [put]
func (h *PairHandler) Update(c *gin.Context) {
	var req service.UpdatePairRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.service.UpdatePair(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pair, nil)
}

// Toggle godoc
// @Summary Flip the active flag of a course pair
// @Tags Pairs
// @Produce json
// @Param id path string true "Pair ID"
// @Success 200 {object} response.Envelope
// @Router /pairs/{id}/toggle [post]
func (h *PairHandler) Toggle(c *gin.Context) {
	pair, err := h.service.ToggleActive(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pair, nil)
}

// Delete godoc
// @Summary Delete course pair and its classes
// @Description Refused with 412 while any student is still enrolled in either class.
// @Tags Pairs
// @Produce json
// @Param id path string true "Pair ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /pairs/{id} [delete]
func (h *PairHandler) Delete(c *gin.Context) {
	pairs, err := h.service.DeletePair(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs, nil)
}
