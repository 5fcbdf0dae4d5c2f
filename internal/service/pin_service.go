package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/repository"
	"github.com/neurobridge/scheduling-api/pkg/config"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type pinLedger interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	SetPin(ctx context.Context, id, pinCode string, pinExpiresAt time.Time) error
	IncrementPinAttempts(ctx context.Context, id string, expectedAttempts int) error
	MarkPinValidated(ctx context.Context, id string, expectedAttempts int) error
}

type auditRecorder interface {
	Record(actor, action, resource, resourceID, detail string)
}

// PinService generates and validates the short-lived numeric credential
// proving in-person attendance at check-in.
type PinService struct {
	appointments pinLedger
	audit        auditRecorder
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          config.PinConfig
	now          func() time.Time
}

// NewPinService creates a service instance.
func NewPinService(
	appointments pinLedger,
	audit auditRecorder,
	metrics *MetricsService,
	cfg config.PinConfig,
	logger *zap.Logger,
) *PinService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Length < 4 || cfg.Length > 8 {
		cfg.Length = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &PinService{
		appointments: appointments,
		audit:        audit,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// NewCode generates a fixed-length numeric code and its expiry timestamp.
// The code keeps leading zeroes, so "0042" is a legal 4-digit PIN.
func (s *PinService) NewCode() (string, time.Time) {
	limit := big.NewInt(1)
	for i := 0; i < s.cfg.Length; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// surfacing that as a scheduling error helps nobody.
		s.logger.Error("pin generation fell back to timestamp", zap.Error(err))
		n = big.NewInt(s.now().UnixNano() % limit.Int64())
	}
	code := fmt.Sprintf("%0*d", s.cfg.Length, n)
	return code, s.now().UTC().Add(s.cfg.TTL)
}

// Reissue installs a fresh PIN on a confirmed in-person appointment,
// replacing an expired or locked-out code and zeroing the attempt counter.
func (s *PinService) Reissue(ctx context.Context, appointmentID, actor string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if appt.Status != models.AppointmentStatusConfirmed || appt.LocationType != models.LocationInPerson {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "pin codes only apply to confirmed in-person appointments")
	}

	code, expires := s.NewCode()
	if err := s.appointments.SetPin(ctx, appointmentID, code, expires); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment changed, re-read its state and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue pin")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionPinIssued, "appointment", appointmentID, "pin reissued")
	}
	return s.reload(ctx, appointmentID)
}

// Validate checks a submitted code against the appointment's active PIN.
// Attempt accounting is a compare-and-set on the stored counter, so two
// concurrent submissions can never both pass nor skew the count.
func (s *PinService) Validate(ctx context.Context, appointmentID, submitted, actor string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if appt.Status != models.AppointmentStatusConfirmed || appt.PinCode == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "appointment has no active pin code")
	}
	if appt.PinCodeValidated {
		return appt, nil
	}
	// The submission being processed counts toward the ceiling: once it
	// would be the MaxAttempts-th, it is refused before any comparison, so
	// a correct code cannot slip through on the final slot.
	attempt := appt.PinCodeAttempts + 1
	if attempt >= s.cfg.MaxAttempts {
		s.observePin("attempts_exceeded")
		return nil, appErrors.ErrPinAttemptsExceeded
	}
	if appt.PinCodeExpiresAt != nil && s.now().After(*appt.PinCodeExpiresAt) {
		s.observePin("expired")
		return nil, appErrors.Clone(appErrors.ErrPinExpired, "pin code has expired, request a new code")
	}

	if submitted != *appt.PinCode {
		if err := s.appointments.IncrementPinAttempts(ctx, appointmentID, appt.PinCodeAttempts); err != nil {
			if errors.Is(err, repository.ErrStaleRow) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "concurrent pin attempt detected, retry")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record pin attempt")
		}
		if s.audit != nil {
			s.audit.Record(actor, models.AuditActionPinRejected, "appointment", appointmentID,
				fmt.Sprintf("attempt %d of %d", attempt, s.cfg.MaxAttempts))
		}
		s.observePin("mismatch")
		remaining := s.cfg.MaxAttempts - attempt - 1
		return nil, appErrors.Clone(appErrors.ErrPinMismatch,
			fmt.Sprintf("pin code does not match, %d attempts remaining", remaining))
	}

	if err := s.appointments.MarkPinValidated(ctx, appointmentID, appt.PinCodeAttempts); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "concurrent pin attempt detected, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark pin validated")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionPinValidated, "appointment", appointmentID, "")
	}
	s.observePin("validated")
	return s.reload(ctx, appointmentID)
}

func (s *PinService) observePin(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePinValidation(outcome)
	}
}

func (s *PinService) reload(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload appointment")
	}
	return appt, nil
}
