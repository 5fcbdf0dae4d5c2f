package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionAppointmentPropose  = "APPOINTMENT_PROPOSE"
	AuditActionAppointmentConfirm  = "APPOINTMENT_CONFIRM"
	AuditActionAppointmentComplete = "APPOINTMENT_COMPLETE"
	AuditActionAppointmentCancel   = "APPOINTMENT_CANCEL"
	AuditActionAppointmentReset    = "APPOINTMENT_RESET"
	AuditActionPinIssued           = "PIN_ISSUED"
	AuditActionPinValidated        = "PIN_VALIDATED"
	AuditActionPinRejected         = "PIN_REJECTED"
	AuditActionBlockCreate         = "BLOCK_CREATE"
	AuditActionBlockRemove         = "BLOCK_REMOVE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Actor      string    `db:"actor" json:"actor"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID string    `db:"resource_id" json:"resource_id"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
