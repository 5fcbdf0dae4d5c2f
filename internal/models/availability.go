package models

import "time"

// WeeklyAvailabilityRule is one recurring weekly window during which an
// educator accepts bookings. Overlapping active rules for the same day are
// legal in storage; the resolver merges them before slot generation.
type WeeklyAvailabilityRule struct {
	ID         string    `db:"id" json:"id"`
	EducatorID string    `db:"educator_id" json:"educator_id"`
	DayOfWeek  int       `db:"day_of_week" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime  string    `db:"start_time" json:"start_time"`   // "HH:MM"
	EndTime    string    `db:"end_time" json:"end_time"`       // "HH:MM"
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSlot is a contiguous open interval on a concrete date during
// which an educator is bookable.
type AvailableSlot struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}
