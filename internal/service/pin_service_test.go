package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/repository"
	"github.com/neurobridge/scheduling-api/pkg/config"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type pinLedgerStub struct {
	appt         *models.Appointment
	incrementErr error
	validateErr  error
	setPinErr    error
}

func (s *pinLedgerStub) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if s.appt == nil {
		return nil, sql.ErrNoRows
	}
	cp := *s.appt
	return &cp, nil
}

func (s *pinLedgerStub) SetPin(ctx context.Context, id, pinCode string, pinExpiresAt time.Time) error {
	if s.setPinErr != nil {
		return s.setPinErr
	}
	s.appt.PinCode = &pinCode
	s.appt.PinCodeExpiresAt = &pinExpiresAt
	s.appt.PinCodeAttempts = 0
	s.appt.PinCodeValidated = false
	return nil
}

func (s *pinLedgerStub) IncrementPinAttempts(ctx context.Context, id string, expectedAttempts int) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	if s.appt.PinCodeAttempts != expectedAttempts {
		return repository.ErrStaleRow
	}
	s.appt.PinCodeAttempts++
	return nil
}

func (s *pinLedgerStub) MarkPinValidated(ctx context.Context, id string, expectedAttempts int) error {
	if s.validateErr != nil {
		return s.validateErr
	}
	if s.appt.PinCodeAttempts != expectedAttempts || s.appt.PinCodeValidated {
		return repository.ErrStaleRow
	}
	s.appt.PinCodeValidated = true
	return nil
}

func confirmedInPerson(pin string) *models.Appointment {
	expires := time.Now().Add(time.Hour)
	return &models.Appointment{
		ID:               "appt-1",
		Status:           models.AppointmentStatusConfirmed,
		LocationType:     models.LocationInPerson,
		PinCode:          &pin,
		PinCodeExpiresAt: &expires,
	}
}

func newTestPinService(ledger *pinLedgerStub, audit *auditStub) *PinService {
	if audit == nil {
		audit = &auditStub{}
	}
	return NewPinService(ledger, audit, nil,
		config.PinConfig{Length: 4, TTL: 24 * time.Hour, MaxAttempts: 5}, nil)
}

func TestPinServiceNewCodeLengthAndExpiry(t *testing.T) {
	svc := newTestPinService(&pinLedgerStub{}, nil)

	code, expires := svc.NewCode()
	require.Len(t, code, 4)
	_, err := strconv.Atoi(code)
	assert.NoError(t, err)
	assert.True(t, expires.After(time.Now().Add(23*time.Hour)))
}

func TestPinServiceValidateSuccess(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	audit := &auditStub{}
	svc := newTestPinService(ledger, audit)

	appt, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.NoError(t, err)
	assert.True(t, appt.PinCodeValidated)
	assert.Contains(t, audit.actions(), models.AuditActionPinValidated)
}

func TestPinServiceValidateMismatchCountsAttempt(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	audit := &auditStub{}
	svc := newTestPinService(ledger, audit)

	_, err := svc.Validate(context.Background(), "appt-1", "0000", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPinMismatch))
	assert.Equal(t, 1, ledger.appt.PinCodeAttempts)
	assert.False(t, ledger.appt.PinCodeValidated)
	assert.Contains(t, audit.actions(), models.AuditActionPinRejected)
}

func TestPinServiceValidateAttemptsExceeded(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	ledger.appt.PinCodeAttempts = 4
	svc := newTestPinService(ledger, nil)

	// The fifth submission hits the ceiling of five before comparison.
	_, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPinAttemptsExceeded))
	assert.False(t, ledger.appt.PinCodeValidated)
	assert.Equal(t, 4, ledger.appt.PinCodeAttempts)
}

func TestPinServiceValidateFifthSubmissionRefusedEvenWhenCorrect(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	svc := newTestPinService(ledger, nil)

	for i := 0; i < 4; i++ {
		_, err := svc.Validate(context.Background(), "appt-1", "0000", "edu-1")
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrPinMismatch), "submission %d", i+1)
	}
	require.Equal(t, 4, ledger.appt.PinCodeAttempts)

	_, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPinAttemptsExceeded))
	assert.False(t, ledger.appt.PinCodeValidated)
}

func TestPinServiceValidateExpired(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	svc := newTestPinService(ledger, nil)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPinExpired))
}

func TestPinServiceValidateWithoutActivePin(t *testing.T) {
	ledger := &pinLedgerStub{appt: &models.Appointment{
		ID:           "appt-1",
		Status:       models.AppointmentStatusPending,
		LocationType: models.LocationInPerson,
	}}
	svc := newTestPinService(ledger, nil)

	_, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestPinServiceValidateAlreadyValidatedIsIdempotent(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	ledger.appt.PinCodeValidated = true
	svc := newTestPinService(ledger, nil)

	appt, err := svc.Validate(context.Background(), "appt-1", "4217", "edu-1")
	require.NoError(t, err)
	assert.True(t, appt.PinCodeValidated)
}

func TestPinServiceValidateConcurrentAttemptConflicts(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	ledger.incrementErr = repository.ErrStaleRow
	svc := newTestPinService(ledger, nil)

	_, err := svc.Validate(context.Background(), "appt-1", "0000", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestPinServiceValidateUnknownAppointment(t *testing.T) {
	svc := newTestPinService(&pinLedgerStub{}, nil)

	_, err := svc.Validate(context.Background(), "missing", "4217", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPinServiceReissueReplacesCode(t *testing.T) {
	ledger := &pinLedgerStub{appt: confirmedInPerson("4217")}
	ledger.appt.PinCodeAttempts = 5
	audit := &auditStub{}
	svc := newTestPinService(ledger, audit)

	appt, err := svc.Reissue(context.Background(), "appt-1", "edu-1")
	require.NoError(t, err)
	require.NotNil(t, appt.PinCode)
	assert.Equal(t, 0, appt.PinCodeAttempts)
	assert.False(t, appt.PinCodeValidated)
	assert.Contains(t, audit.actions(), models.AuditActionPinIssued)
}

func TestPinServiceReissueRequiresConfirmedInPerson(t *testing.T) {
	ledger := &pinLedgerStub{appt: &models.Appointment{
		ID:           "appt-1",
		Status:       models.AppointmentStatusConfirmed,
		LocationType: models.LocationOnline,
	}}
	svc := newTestPinService(ledger, nil)

	_, err := svc.Reissue(context.Background(), "appt-1", "edu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}
