package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/neurobridge/scheduling-api/internal/models"
)

const ruleColumns = `id, educator_id, day_of_week, start_time, end_time, is_active, created_at, updated_at`

// AvailabilityRuleRepository persists recurring weekly availability windows.
// The resolver only reads active rules; the CRUD surface serves the template
// management endpoints.
type AvailabilityRuleRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRuleRepository creates a new rule repository.
func NewAvailabilityRuleRepository(db *sqlx.DB) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{db: db}
}

// ListActiveByEducator returns the educator's active rules ordered by day
// and start time. Resolution always reads current state; nothing is cached.
func (r *AvailabilityRuleRepository) ListActiveByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_availability_rules
WHERE educator_id = $1 AND is_active = TRUE
ORDER BY day_of_week ASC, start_time ASC`, ruleColumns)
	var rules []models.WeeklyAvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, educatorID); err != nil {
		return nil, fmt.Errorf("list active availability rules: %w", err)
	}
	return rules, nil
}

// ListByEducator returns all rules of the educator, active or not.
func (r *AvailabilityRuleRepository) ListByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_availability_rules
WHERE educator_id = $1
ORDER BY day_of_week ASC, start_time ASC`, ruleColumns)
	var rules []models.WeeklyAvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, educatorID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// FindByID loads a rule by id. sql.ErrNoRows passes through.
func (r *AvailabilityRuleRepository) FindByID(ctx context.Context, id string) (*models.WeeklyAvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_availability_rules WHERE id = $1`, ruleColumns)
	var rule models.WeeklyAvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new rule.
func (r *AvailabilityRuleRepository) Create(ctx context.Context, rule *models.WeeklyAvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	const query = `INSERT INTO weekly_availability_rules
(id, educator_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
VALUES (:id, :educator_id, :day_of_week, :start_time, :end_time, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

// Update rewrites the window and active flag of an existing rule.
func (r *AvailabilityRuleRepository) Update(ctx context.Context, rule *models.WeeklyAvailabilityRule) error {
	const query = `UPDATE weekly_availability_rules
SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
    is_active = :is_active, updated_at = NOW()
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update availability rule rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate flips is_active off without deleting history.
func (r *AvailabilityRuleRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE weekly_availability_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate availability rule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate availability rule rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
