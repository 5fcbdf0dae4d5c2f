package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/schedule"
	"github.com/neurobridge/scheduling-api/pkg/config"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type availabilityRuleRepo interface {
	ListActiveByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error)
	ListByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error)
	FindByID(ctx context.Context, id string) (*models.WeeklyAvailabilityRule, error)
	Create(ctx context.Context, rule *models.WeeklyAvailabilityRule) error
	Update(ctx context.Context, rule *models.WeeklyAvailabilityRule) error
	Deactivate(ctx context.Context, id string) error
}

type occupancyReader interface {
	ListOccupiedBetween(ctx context.Context, educatorID string, from, to time.Time) ([]models.Appointment, error)
}

// CreateAvailabilityRuleRequest describes a new weekly window.
type CreateAvailabilityRuleRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// UpdateAvailabilityRuleRequest rewrites an existing rule.
type UpdateAvailabilityRuleRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	IsActive  *bool  `json:"is_active" validate:"required"`
}

// AvailabilityService resolves an educator's weekly template into concrete
// bookable slots and manages the template itself.
type AvailabilityService struct {
	rules        availabilityRuleRepo
	appointments occupancyReader
	validator    *validator.Validate
	logger       *zap.Logger
	maxRangeDays int
}

// NewAvailabilityService creates a service instance.
func NewAvailabilityService(
	rules availabilityRuleRepo,
	appointments occupancyReader,
	cfg config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRange := cfg.MaxResolveRangeDays
	if maxRange <= 0 {
		maxRange = 90
	}
	return &AvailabilityService{
		rules:        rules,
		appointments: appointments,
		validator:    validate,
		logger:       logger,
		maxRangeDays: maxRange,
	}
}

// Resolve computes the ordered open slots for the educator across the date
// range. For every date the active rules of that weekday are merged into
// maximal windows and every non-terminal appointment is subtracted. An
// educator with no availability yields an empty result, not an error.
func (s *AvailabilityService) Resolve(ctx context.Context, educatorID string, from, to time.Time) ([]models.AvailableSlot, error) {
	if educatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "educatorId is required")
	}
	from = truncateToDay(from)
	to = truncateToDay(to)
	if from.IsZero() || to.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from and to dates are required")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	if int(to.Sub(from).Hours()/24) >= s.maxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("date range exceeds %d days", s.maxRangeDays))
	}

	rules, err := s.rules.ListActiveByEducator(ctx, educatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}

	windowsByDay := make(map[int][]schedule.Interval)
	for _, rule := range rules {
		iv, err := schedule.ParseInterval(rule.StartTime, rule.EndTime)
		if err != nil {
			s.logger.Warn("skipping malformed availability rule",
				zap.String("rule_id", rule.ID), zap.Error(err))
			continue
		}
		windowsByDay[rule.DayOfWeek] = append(windowsByDay[rule.DayOfWeek], iv)
	}

	occupied, err := s.appointments.ListOccupiedBetween(ctx, educatorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked appointments")
	}

	busyByDate := make(map[string][]schedule.Interval)
	for _, appt := range occupied {
		iv, err := schedule.ParseInterval(appt.StartTime, appt.EndTime)
		if err != nil {
			s.logger.Warn("skipping malformed appointment interval",
				zap.String("appointment_id", appt.ID), zap.Error(err))
			continue
		}
		key := appt.AppointmentDate.Format("2006-01-02")
		busyByDate[key] = append(busyByDate[key], iv)
	}

	slots := make([]models.AvailableSlot, 0)
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		windows := schedule.Merge(windowsByDay[int(date.Weekday())])
		if len(windows) == 0 {
			continue
		}
		free := schedule.Subtract(windows, busyByDate[date.Format("2006-01-02")])
		for _, iv := range free {
			slots = append(slots, models.AvailableSlot{
				Date:      date,
				StartTime: schedule.FormatClock(iv.Start),
				EndTime:   schedule.FormatClock(iv.End),
			})
		}
	}
	return slots, nil
}

// ListRules returns every rule of the educator for template management.
func (s *AvailabilityService) ListRules(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	if educatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "educatorId is required")
	}
	rules, err := s.rules.ListByEducator(ctx, educatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// CreateRule adds a weekly window to the educator's template.
func (s *AvailabilityService) CreateRule(ctx context.Context, educatorID string, req CreateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error) {
	if educatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "educatorId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability rule payload")
	}
	if _, err := schedule.ParseInterval(req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability window")
	}

	rule := &models.WeeklyAvailabilityRule{
		EducatorID: educatorID,
		DayOfWeek:  req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		IsActive:   true,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability rule")
	}
	return rule, nil
}

// UpdateRule rewrites a rule's window and active flag.
func (s *AvailabilityService) UpdateRule(ctx context.Context, ruleID string, req UpdateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability rule payload")
	}
	if _, err := schedule.ParseInterval(req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability window")
	}

	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rule")
	}

	rule.DayOfWeek = req.DayOfWeek
	rule.StartTime = req.StartTime
	rule.EndTime = req.EndTime
	rule.IsActive = *req.IsActive
	if err := s.rules.Update(ctx, rule); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability rule")
	}
	return rule, nil
}

// DeactivateRule switches a rule off without deleting it.
func (s *AvailabilityService) DeactivateRule(ctx context.Context, ruleID string) error {
	if err := s.rules.Deactivate(ctx, ruleID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate availability rule")
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
