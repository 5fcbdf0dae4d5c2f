package models

import "time"

// AppointmentStatus enumerates the lifecycle states of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// NonTerminalStatuses are the states that occupy an educator's calendar.
// A pending hold blocks the slot until the family's request is resolved.
var NonTerminalStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
}

// IsTerminal reports whether the status admits no further normal transition.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// LocationType distinguishes online sessions from in-person visits.
type LocationType string

const (
	LocationOnline   LocationType = "online"
	LocationInPerson LocationType = "in_person"
)

// Appointment is a booked (or requested) session between an educator and a
// family. Times of day are zero-padded "HH:MM" strings so that lexicographic
// order matches chronological order, both in Go and in SQL.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	EducatorID      string            `db:"educator_id" json:"educator_id"`
	FamilyID        string            `db:"family_id" json:"family_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	StartTime       string            `db:"start_time" json:"start_time"`
	EndTime         string            `db:"end_time" json:"end_time"`
	LocationType    LocationType      `db:"location_type" json:"location_type"`
	Address         *string           `db:"address" json:"address,omitempty"`
	Status          AppointmentStatus `db:"status" json:"status"`

	PinCode          *string    `db:"pin_code" json:"-"`
	PinCodeExpiresAt *time.Time `db:"pin_code_expires_at" json:"pin_code_expires_at,omitempty"`
	PinCodeAttempts  int        `db:"pin_code_attempts" json:"pin_code_attempts"`
	PinCodeValidated bool       `db:"pin_code_validated" json:"pin_code_validated"`

	EducatorNotes string  `db:"educator_notes" json:"educator_notes,omitempty"`
	CancelReason  *string `db:"cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter describes query params for listing appointments.
type AppointmentFilter struct {
	EducatorID string
	FamilyID   string
	Status     AppointmentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
