package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/service"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/response"
)

type blockService interface {
	Create(ctx context.Context, actor string, req service.CreateBlockRequest) (*models.BlockRelationship, error)
	Remove(ctx context.Context, id, actor string) error
	ListByEducator(ctx context.Context, educatorID string) ([]models.BlockRelationship, error)
}

// BlockHandler exposes block relationship management.
type BlockHandler struct {
	service blockService
}

// NewBlockHandler builds a new handler.
func NewBlockHandler(svc blockService) *BlockHandler {
	return &BlockHandler{service: svc}
}

// Create godoc
// @Summary Block a family from booking an educator
// @Tags Blocks
// @Accept json
// @Produce json
// @Param payload body service.CreateBlockRequest true "Block payload"
// @Success 201 {object} response.Envelope
// @Router /blocks [post]
func (h *BlockHandler) Create(c *gin.Context) {
	var req service.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block payload"))
		return
	}
	block, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// Remove godoc
// @Summary Lift a block
// @Tags Blocks
// @Param id path string true "Block ID"
// @Success 204
// @Router /blocks/{id} [delete]
func (h *BlockHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByEducator godoc
// @Summary List blocks involving an educator
// @Tags Blocks
// @Produce json
// @Param educatorId path string true "Educator ID"
// @Success 200 {object} response.Envelope
// @Router /educators/{educatorId}/blocks [get]
func (h *BlockHandler) ListByEducator(c *gin.Context) {
	blocks, err := h.service.ListByEducator(c.Request.Context(), c.Param("educatorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}
