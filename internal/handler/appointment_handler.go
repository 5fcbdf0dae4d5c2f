package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/service"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/response"
)

type appointmentService interface {
	Propose(ctx context.Context, req service.ProposeAppointmentsRequest) ([]models.Appointment, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	Confirm(ctx context.Context, id, actor string) (*models.Appointment, error)
	Complete(ctx context.Context, id, actor string) (*models.Appointment, error)
	Cancel(ctx context.Context, id, actor string, req service.CancelAppointmentRequest) (*models.Appointment, error)
	ResetToPending(ctx context.Context, id, actor, reason string) (*models.Appointment, error)
}

type pinService interface {
	Validate(ctx context.Context, appointmentID, submitted, actor string) (*models.Appointment, error)
	Reissue(ctx context.Context, appointmentID, actor string) (*models.Appointment, error)
}

// ValidatePinRequest carries the submitted check-in code.
type ValidatePinRequest struct {
	PinCode string `json:"pin_code" binding:"required"`
}

// ResetAppointmentRequest carries the administrative reset reason.
type ResetAppointmentRequest struct {
	Reason string `json:"reason"`
}

// AppointmentHandler exposes the appointment lifecycle endpoints.
type AppointmentHandler struct {
	appointments appointmentService
	pins         pinService
}

// NewAppointmentHandler builds a new handler.
func NewAppointmentHandler(appointments appointmentService, pins pinService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, pins: pins}
}

// Propose godoc
// @Summary Propose one or more appointment slots, all or nothing
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body service.ProposeAppointmentsRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Propose(c *gin.Context) {
	var req service.ProposeAppointmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proposal payload"))
		return
	}
	appts, err := h.appointments.Propose(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appts)
}

// Get godoc
// @Summary Get an appointment by id
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.appointments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// List godoc
// @Summary List appointments
// @Tags Appointments
// @Produce json
// @Param educatorId query string false "Educator ID filter"
// @Param familyId query string false "Family ID filter"
// @Param status query string false "Status filter"
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter := models.AppointmentFilter{
		EducatorID: c.Query("educatorId"),
		FamilyID:   c.Query("familyId"),
		Status:     models.AppointmentStatus(c.Query("status")),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be formatted YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be formatted YYYY-MM-DD"))
			return
		}
		filter.DateTo = &to
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.PageSize, _ = strconv.Atoi(c.Query("pageSize"))

	appts, pagination, err := h.appointments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, pagination)
}

// Confirm godoc
// @Summary Confirm a pending appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	appt, err := h.appointments.Confirm(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Complete godoc
// @Summary Complete a confirmed appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	appt, err := h.appointments.Complete(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Cancel godoc
// @Summary Cancel a pending or confirmed appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body service.CancelAppointmentRequest false "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req service.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
			return
		}
	}
	appt, err := h.appointments.Cancel(c.Request.Context(), c.Param("id"), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Reset godoc
// @Summary Administratively reset an appointment to pending
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body ResetAppointmentRequest false "Reset payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/reset [post]
func (h *AppointmentHandler) Reset(c *gin.Context) {
	var req ResetAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
			return
		}
	}
	appt, err := h.appointments.ResetToPending(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// ValidatePin godoc
// @Summary Validate an in-person check-in PIN
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body ValidatePinRequest true "PIN payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/pin/validate [post]
func (h *AppointmentHandler) ValidatePin(c *gin.Context) {
	var req ValidatePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "pin_code is required"))
		return
	}
	appt, err := h.pins.Validate(c.Request.Context(), c.Param("id"), req.PinCode, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// ReissuePin godoc
// @Summary Issue a fresh check-in PIN on a confirmed in-person appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/pin/reissue [post]
func (h *AppointmentHandler) ReissuePin(c *gin.Context) {
	appt, err := h.pins.Reissue(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}
