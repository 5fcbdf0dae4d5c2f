package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/repository"
	"github.com/neurobridge/scheduling-api/internal/schedule"
	"github.com/neurobridge/scheduling-api/pkg/config"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/lock"
)

type appointmentLedger interface {
	CreateBatch(ctx context.Context, appts []*models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	Confirm(ctx context.Context, id string, pinCode *string, pinExpiresAt *time.Time) error
	MarkCompleted(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string, reason *string) error
	ResetToPending(ctx context.Context, id string) error
}

type blockChecker interface {
	Exists(ctx context.Context, educatorID, familyID string) (bool, error)
}

type pinIssuer interface {
	NewCode() (string, time.Time)
}

type proposalLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error)
}

// ProposedSlot is one requested time window within a proposal.
type ProposedSlot struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ProposeAppointmentsRequest asks to hold one or more slots of a single
// educator on a single date. Either every slot is created as a pending hold
// or none is.
type ProposeAppointmentsRequest struct {
	EducatorID    string         `json:"educator_id" validate:"required"`
	FamilyID      string         `json:"family_id" validate:"required"`
	Date          string         `json:"date" validate:"required"`
	LocationType  string         `json:"location_type" validate:"required,oneof=online in_person"`
	Address       string         `json:"address" validate:"required_if=LocationType in_person"`
	EducatorNotes string         `json:"educator_notes"`
	Slots         []ProposedSlot `json:"slots" validate:"required,min=1,dive"`
}

// CancelAppointmentRequest carries the optional cancellation reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// AppointmentService owns the appointment lifecycle: proposing pending holds,
// confirming, completing, cancelling, and the administrative reset.
type AppointmentService struct {
	appointments appointmentLedger
	blocks       blockChecker
	pins         pinIssuer
	locker       proposalLocker
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          config.BookingConfig
}

// NewAppointmentService creates a service instance.
func NewAppointmentService(
	appointments appointmentLedger,
	blocks blockChecker,
	pins pinIssuer,
	locker proposalLocker,
	audit auditRecorder,
	metrics *MetricsService,
	cfg config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocker(nil)
	}
	if cfg.MaxSlotsPerProposal <= 0 {
		cfg.MaxSlotsPerProposal = 10
	}
	if cfg.ProposeLockTTL <= 0 {
		cfg.ProposeLockTTL = 5 * time.Second
	}
	return &AppointmentService{
		appointments: appointments,
		blocks:       blocks,
		pins:         pins,
		locker:       locker,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Propose creates pending holds for every requested slot, all or nothing.
// Slots must not overlap each other nor any non-terminal appointment of the
// educator, and a block between the pair rejects the whole request.
func (s *AppointmentService) Propose(ctx context.Context, req ProposeAppointmentsRequest) ([]models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		s.observeProposal("invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal payload")
	}
	if len(req.Slots) > s.cfg.MaxSlotsPerProposal {
		s.observeProposal("invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("a proposal may hold at most %d slots", s.cfg.MaxSlotsPerProposal))
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		s.observeProposal("invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	intervals := make([]schedule.Interval, len(req.Slots))
	for i, slot := range req.Slots {
		iv, err := schedule.ParseInterval(slot.StartTime, slot.EndTime)
		if err != nil {
			s.observeProposal("invalid")
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("slot %d is invalid", i+1))
		}
		intervals[i] = iv
	}
	for i := range intervals {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Overlaps(intervals[j]) {
				s.observeProposal("invalid")
				return nil, appErrors.Clone(appErrors.ErrValidation, "proposed slots overlap each other")
			}
		}
	}

	blocked, err := s.blocks.Exists(ctx, req.EducatorID, req.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check block relationship")
	}
	if blocked {
		s.observeProposal("blocked")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking is not available for this educator")
	}

	// One proposal per educator and date at a time across instances. The
	// lease sheds contending proposals early; the batch transaction takes
	// an advisory lock on the same educator and date, so serialization
	// holds even when no Redis client is configured.
	lease, err := s.locker.Acquire(ctx,
		fmt.Sprintf("propose:%s:%s", req.EducatorID, req.Date), s.cfg.ProposeLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.observeProposal("contended")
			return nil, appErrors.Clone(appErrors.ErrConflict, "another proposal for this educator is in flight, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire proposal lock")
	}
	defer lease.Release(ctx)

	appts := make([]*models.Appointment, len(req.Slots))
	for i, slot := range req.Slots {
		appt := &models.Appointment{
			EducatorID:      req.EducatorID,
			FamilyID:        req.FamilyID,
			AppointmentDate: date,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			LocationType:    models.LocationType(req.LocationType),
			EducatorNotes:   req.EducatorNotes,
		}
		if req.LocationType == string(models.LocationInPerson) {
			addr := req.Address
			appt.Address = &addr
		}
		appts[i] = appt
	}

	if err := s.appointments.CreateBatch(ctx, appts); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			s.observeProposal("overlap")
			return nil, appErrors.Clone(appErrors.ErrConflict, "one or more slots are no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointments")
	}

	s.observeProposal("accepted")
	if s.audit != nil {
		for _, appt := range appts {
			s.audit.Record(req.FamilyID, models.AuditActionAppointmentPropose,
				"appointment", appt.ID, fmt.Sprintf("%s %s-%s", req.Date, appt.StartTime, appt.EndTime))
		}
	}

	result := make([]models.Appointment, len(appts))
	for i, appt := range appts {
		result[i] = *appt
	}
	return result, nil
}

// Confirm moves a pending hold to confirmed. For in-person appointments the
// check-in PIN is issued inside the same transition, so a confirmed in-person
// row always carries an active code.
func (s *AppointmentService) Confirm(ctx context.Context, id, actor string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.AppointmentStatusPending {
		s.observeTransition("confirm", "invalid_transition")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot confirm an appointment in status %q", appt.Status))
	}

	var pinCode *string
	var pinExpires *time.Time
	if appt.LocationType == models.LocationInPerson && s.pins != nil {
		code, expires := s.pins.NewCode()
		pinCode = &code
		pinExpires = &expires
	}

	if err := s.appointments.Confirm(ctx, id, pinCode, pinExpires); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			s.observeTransition("confirm", "stale")
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment changed, re-read its state and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm appointment")
	}

	s.observeTransition("confirm", "ok")
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAppointmentConfirm, "appointment", id, "")
		if pinCode != nil {
			s.audit.Record(actor, models.AuditActionPinIssued, "appointment", id, "pin issued on confirmation")
		}
	}
	return s.load(ctx, id)
}

// Complete moves a confirmed appointment to completed. In-person appointments
// must have a validated PIN first.
func (s *AppointmentService) Complete(ctx context.Context, id, actor string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.AppointmentStatusConfirmed {
		s.observeTransition("complete", "invalid_transition")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot complete an appointment in status %q", appt.Status))
	}
	if appt.LocationType == models.LocationInPerson && !appt.PinCodeValidated {
		s.observeTransition("complete", "pin_not_validated")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"in-person appointments require a validated check-in pin before completion")
	}

	if err := s.appointments.MarkCompleted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			s.observeTransition("complete", "stale")
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment changed, re-read its state and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete appointment")
	}

	s.observeTransition("complete", "ok")
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAppointmentComplete, "appointment", id, "")
	}
	return s.load(ctx, id)
}

// Cancel moves a pending or confirmed appointment to cancelled, releasing its
// slot. Cancelling a terminal appointment is rejected, including an already
// cancelled one.
func (s *AppointmentService) Cancel(ctx context.Context, id, actor string, req CancelAppointmentRequest) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		s.observeTransition("cancel", "invalid_transition")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot cancel an appointment in status %q", appt.Status))
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}
	if err := s.appointments.Cancel(ctx, id, reason); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			s.observeTransition("cancel", "stale")
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment changed, re-read its state and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}

	s.observeTransition("cancel", "ok")
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAppointmentCancel, "appointment", id, req.Reason)
	}
	return s.load(ctx, id)
}

// ResetToPending is the administrative escape hatch. It works from any state,
// releases nothing implicitly (the row becomes a pending hold again) and is
// always written to the audit trail.
func (s *AppointmentService) ResetToPending(ctx context.Context, id, actor, reason string) (*models.Appointment, error) {
	if err := s.appointments.ResetToPending(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset appointment")
	}

	s.observeTransition("reset", "ok")
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAppointmentReset, "appointment", id, reason)
	}
	return s.load(ctx, id)
}

// Get loads one appointment.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return s.load(ctx, id)
}

// List returns appointments matching the filter with pagination metadata.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	appts, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return appts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

func (s *AppointmentService) observeProposal(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveProposal(outcome)
	}
}

func (s *AppointmentService) observeTransition(action, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action, outcome)
	}
}
