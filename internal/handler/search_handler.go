package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

type searchService interface {
	Search(ctx context.Context, query string) (*dto.SearchResult, error)
}

// SearchHandler serves the global search box.
type SearchHandler struct {
	service searchService
}

// NewSearchHandler constructs SearchHandler.
func NewSearchHandler(service searchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search godoc
// @Summary Search students and course pairs
// @Tags Search
// @Produce json
// @Param q query string true "At least two characters"
// @Success 200 {object} response.Envelope
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	result, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
