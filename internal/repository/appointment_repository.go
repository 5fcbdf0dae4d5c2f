package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/neurobridge/scheduling-api/internal/models"
)

// ErrOverlap is returned when an insert would collide with a non-terminal
// appointment of the same educator.
var ErrOverlap = errors.New("appointment overlaps an existing booking")

// ErrStaleRow is returned when a conditional update matched no row because
// the row's current state no longer satisfies the expected precondition.
var ErrStaleRow = errors.New("row state changed since last read")

const appointmentColumns = `id, educator_id, family_id, appointment_date, start_time, end_time,
location_type, address, status, pin_code, pin_code_expires_at, pin_code_attempts,
pin_code_validated, educator_notes, cancel_reason, created_at, updated_at`

// AppointmentRepository is the authoritative ledger of appointment rows.
// Every mutation is a single-row conditional update keyed by id; the only
// multi-row write is the all-or-nothing CreateBatch transaction.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// CreateBatch inserts every appointment inside one transaction, re-checking
// each slot against non-terminal rows at insert time. If any slot overlaps,
// nothing is persisted and ErrOverlap is returned. All rows of a batch share
// one educator and date; a transaction-scoped advisory lock on that pair
// serializes concurrent batches, since under read committed two transactions
// could otherwise each pass the EXISTS check and both commit.
func (r *AppointmentRepository) CreateBatch(ctx context.Context, appts []*models.Appointment) error {
	if len(appts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin appointment batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

	lockKey := appts[0].EducatorID + ":" + appts[0].AppointmentDate.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx, advisoryLockQuery, lockKey); err != nil {
		return fmt.Errorf("lock educator day: %w", err)
	}

	const overlapQuery = `SELECT EXISTS (
SELECT 1 FROM appointments
WHERE educator_id = $1 AND appointment_date = $2
  AND status IN ('pending', 'confirmed')
  AND start_time < $4 AND end_time > $3)`

	const insertQuery = `INSERT INTO appointments
(id, educator_id, family_id, appointment_date, start_time, end_time, location_type,
 address, status, pin_code_attempts, pin_code_validated, educator_notes, created_at, updated_at)
VALUES (:id, :educator_id, :family_id, :appointment_date, :start_time, :end_time, :location_type,
 :address, :status, 0, FALSE, :educator_notes, :created_at, :updated_at)`

	now := time.Now().UTC()
	for _, appt := range appts {
		var taken bool
		if err := tx.GetContext(ctx, &taken, overlapQuery,
			appt.EducatorID, appt.AppointmentDate, appt.StartTime, appt.EndTime); err != nil {
			return fmt.Errorf("check slot overlap: %w", err)
		}
		if taken {
			return ErrOverlap
		}

		if appt.ID == "" {
			appt.ID = uuid.NewString()
		}
		appt.Status = models.AppointmentStatusPending
		appt.CreatedAt = now
		appt.UpdatedAt = now

		if _, err := tx.NamedExecContext(ctx, insertQuery, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appointment batch: %w", err)
	}
	return nil
}

// FindByID loads an appointment by id. sql.ErrNoRows passes through.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// List returns appointments matching the filter with pagination.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EducatorID != "" {
		conditions = append(conditions, fmt.Sprintf("educator_id = $%d", len(args)+1))
		args = append(args, filter.EducatorID)
	}
	if filter.FamilyID != "" {
		conditions = append(conditions, fmt.Sprintf("family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("appointment_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("appointment_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY appointment_date ASC, start_time ASC LIMIT %d OFFSET %d",
		appointmentColumns, base, size, offset)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appts, total, nil
}

// ListOccupiedBetween returns the educator's non-terminal appointments within
// the date range, ordered for the resolver's subtraction pass.
func (r *AppointmentRepository) ListOccupiedBetween(ctx context.Context, educatorID string, from, to time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE educator_id = $1 AND appointment_date BETWEEN $2 AND $3
  AND status IN ('pending', 'confirmed')
ORDER BY appointment_date ASC, start_time ASC`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, educatorID, from, to); err != nil {
		return nil, fmt.Errorf("list occupied appointments: %w", err)
	}
	return appts, nil
}

// Confirm transitions pending → confirmed, installing the PIN fields for
// in-person appointments (nil pin for online). ErrStaleRow when the row is
// no longer pending.
func (r *AppointmentRepository) Confirm(ctx context.Context, id string, pinCode *string, pinExpiresAt *time.Time) error {
	const query = `UPDATE appointments
SET status = 'confirmed', pin_code = $2, pin_code_expires_at = $3,
    pin_code_attempts = 0, pin_code_validated = FALSE, updated_at = NOW()
WHERE id = $1 AND status = 'pending'`
	return r.conditional(ctx, query, id, pinCode, pinExpiresAt)
}

// MarkCompleted transitions confirmed → completed and clears the PIN. The
// guard keeps an in-person appointment from completing before its PIN was
// validated, even if two requests race.
func (r *AppointmentRepository) MarkCompleted(ctx context.Context, id string) error {
	const query = `UPDATE appointments
SET status = 'completed', pin_code = NULL, pin_code_expires_at = NULL, updated_at = NOW()
WHERE id = $1 AND status = 'confirmed'
  AND (location_type = 'online' OR pin_code_validated = TRUE)`
	return r.conditional(ctx, query, id)
}

// Cancel transitions a non-terminal appointment to cancelled and clears the PIN.
func (r *AppointmentRepository) Cancel(ctx context.Context, id string, reason *string) error {
	const query = `UPDATE appointments
SET status = 'cancelled', cancel_reason = $2, pin_code = NULL,
    pin_code_expires_at = NULL, updated_at = NOW()
WHERE id = $1 AND status IN ('pending', 'confirmed')`
	return r.conditional(ctx, query, id, reason)
}

// ResetToPending is the administrative escape hatch: it forces the row back
// to pending from any state and zeroes all PIN fields and counters.
func (r *AppointmentRepository) ResetToPending(ctx context.Context, id string) error {
	const query = `UPDATE appointments
SET status = 'pending', pin_code = NULL, pin_code_expires_at = NULL,
    pin_code_attempts = 0, pin_code_validated = FALSE, cancel_reason = NULL, updated_at = NOW()
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset appointment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset appointment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPin installs a fresh PIN on a confirmed in-person appointment,
// resetting the attempt counter and validation flag.
func (r *AppointmentRepository) SetPin(ctx context.Context, id, pinCode string, pinExpiresAt time.Time) error {
	const query = `UPDATE appointments
SET pin_code = $2, pin_code_expires_at = $3, pin_code_attempts = 0,
    pin_code_validated = FALSE, updated_at = NOW()
WHERE id = $1 AND status = 'confirmed' AND location_type = 'in_person'`
	return r.conditional(ctx, query, id, pinCode, pinExpiresAt)
}

// IncrementPinAttempts bumps the attempt counter only if it still holds the
// expected value, serializing concurrent validation attempts.
func (r *AppointmentRepository) IncrementPinAttempts(ctx context.Context, id string, expectedAttempts int) error {
	const query = `UPDATE appointments
SET pin_code_attempts = pin_code_attempts + 1, updated_at = NOW()
WHERE id = $1 AND status = 'confirmed' AND pin_code_attempts = $2`
	return r.conditional(ctx, query, id, expectedAttempts)
}

// MarkPinValidated flips pin_code_validated under the same attempt-count
// compare-and-set discipline as IncrementPinAttempts.
func (r *AppointmentRepository) MarkPinValidated(ctx context.Context, id string, expectedAttempts int) error {
	const query = `UPDATE appointments
SET pin_code_validated = TRUE, updated_at = NOW()
WHERE id = $1 AND status = 'confirmed' AND pin_code_validated = FALSE
  AND pin_code_attempts = $2`
	return r.conditional(ctx, query, id, expectedAttempts)
}

func (r *AppointmentRepository) conditional(ctx context.Context, query, id string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("conditional appointment update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional appointment update rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleRow
	}
	return nil
}
