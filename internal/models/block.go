package models

import "time"

// BlockRelationship is a directed educator-family block. Its existence
// forbids any new appointment between the pair; moderation creates and
// removes rows, the scheduling engine only reads them.
type BlockRelationship struct {
	ID         string    `db:"id" json:"id"`
	EducatorID string    `db:"educator_id" json:"educator_id"`
	FamilyID   string    `db:"family_id" json:"family_id"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
