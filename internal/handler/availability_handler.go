package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/service"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/response"
)

type availabilityService interface {
	Resolve(ctx context.Context, educatorID string, from, to time.Time) ([]models.AvailableSlot, error)
	ListRules(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error)
	CreateRule(ctx context.Context, educatorID string, req service.CreateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error)
	UpdateRule(ctx context.Context, ruleID string, req service.UpdateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error)
	DeactivateRule(ctx context.Context, ruleID string) error
}

// AvailabilityHandler exposes slot resolution and template management.
type AvailabilityHandler struct {
	service availabilityService
	metrics *service.MetricsService
}

// NewAvailabilityHandler builds a new handler.
func NewAvailabilityHandler(svc availabilityService, metrics *service.MetricsService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc, metrics: metrics}
}

// Resolve godoc
// @Summary Resolve an educator's open slots across a date range
// @Tags Availability
// @Produce json
// @Param educatorId query string true "Educator ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}

	slots, err := h.service.Resolve(c.Request.Context(), c.Query("educatorId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSlotsResolved(len(slots))
	response.JSON(c, http.StatusOK, slots, nil)
}

// ListRules godoc
// @Summary List an educator's weekly availability rules
// @Tags Availability
// @Produce json
// @Param educatorId path string true "Educator ID"
// @Success 200 {object} response.Envelope
// @Router /educators/{educatorId}/availability-rules [get]
func (h *AvailabilityHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), c.Param("educatorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateRule godoc
// @Summary Add a weekly availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param educatorId path string true "Educator ID"
// @Param payload body service.CreateAvailabilityRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /educators/{educatorId}/availability-rules [post]
func (h *AvailabilityHandler) CreateRule(c *gin.Context) {
	var req service.CreateAvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability rule payload"))
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), c.Param("educatorId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Rewrite an availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param ruleId path string true "Rule ID"
// @Param payload body service.UpdateAvailabilityRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /availability-rules/{ruleId} [put]
func (h *AvailabilityHandler) UpdateRule(c *gin.Context) {
	var req service.UpdateAvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability rule payload"))
		return
	}
	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("ruleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// DeactivateRule godoc
// @Summary Deactivate an availability rule
// @Tags Availability
// @Param ruleId path string true "Rule ID"
// @Success 204
// @Router /availability-rules/{ruleId} [delete]
func (h *AvailabilityHandler) DeactivateRule(c *gin.Context) {
	if err := h.service.DeactivateRule(c.Request.Context(), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
