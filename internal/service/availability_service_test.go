package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/pkg/config"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type ruleRepoStub struct {
	rules map[string]*models.WeeklyAvailabilityRule
}

func newRuleRepoStub(rules ...models.WeeklyAvailabilityRule) *ruleRepoStub {
	s := &ruleRepoStub{rules: map[string]*models.WeeklyAvailabilityRule{}}
	for i := range rules {
		cp := rules[i]
		s.rules[cp.ID] = &cp
	}
	return s
}

func (s *ruleRepoStub) ListActiveByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	var out []models.WeeklyAvailabilityRule
	for _, rule := range s.rules {
		if rule.EducatorID == educatorID && rule.IsActive {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (s *ruleRepoStub) ListByEducator(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	var out []models.WeeklyAvailabilityRule
	for _, rule := range s.rules {
		if rule.EducatorID == educatorID {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (s *ruleRepoStub) FindByID(ctx context.Context, id string) (*models.WeeklyAvailabilityRule, error) {
	rule, ok := s.rules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *rule
	return &cp, nil
}

func (s *ruleRepoStub) Create(ctx context.Context, rule *models.WeeklyAvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = "rule-" + rule.StartTime
	}
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *ruleRepoStub) Update(ctx context.Context, rule *models.WeeklyAvailabilityRule) error {
	if _, ok := s.rules[rule.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *ruleRepoStub) Deactivate(ctx context.Context, id string) error {
	rule, ok := s.rules[id]
	if !ok {
		return sql.ErrNoRows
	}
	rule.IsActive = false
	return nil
}

type occupancyStub struct {
	appts []models.Appointment
}

func (s *occupancyStub) ListOccupiedBetween(ctx context.Context, educatorID string, from, to time.Time) ([]models.Appointment, error) {
	return s.appts, nil
}

func newTestAvailabilityService(rules *ruleRepoStub, occupied *occupancyStub) *AvailabilityService {
	if occupied == nil {
		occupied = &occupancyStub{}
	}
	return NewAvailabilityService(rules, occupied,
		config.BookingConfig{MaxResolveRangeDays: 90}, nil, nil)
}

// monday2025 is a Monday, so weekday-1 rules apply to it.
var monday2025 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestAvailabilityServiceResolveSubtractsBookings(t *testing.T) {
	rules := newRuleRepoStub(models.WeeklyAvailabilityRule{
		ID: "rule-1", EducatorID: "edu-1", DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", IsActive: true,
	})
	occupied := &occupancyStub{appts: []models.Appointment{{
		ID:              "appt-1",
		EducatorID:      "edu-1",
		AppointmentDate: monday2025,
		StartTime:       "10:00",
		EndTime:         "10:30",
		Status:          models.AppointmentStatusConfirmed,
	}}}
	svc := newTestAvailabilityService(rules, occupied)

	slots, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "10:00", slots[0].EndTime)
	assert.Equal(t, "10:30", slots[1].StartTime)
	assert.Equal(t, "12:00", slots[1].EndTime)
}

func TestAvailabilityServiceResolveMergesOverlappingRules(t *testing.T) {
	rules := newRuleRepoStub(
		models.WeeklyAvailabilityRule{
			ID: "rule-1", EducatorID: "edu-1", DayOfWeek: 1,
			StartTime: "09:00", EndTime: "11:00", IsActive: true,
		},
		models.WeeklyAvailabilityRule{
			ID: "rule-2", EducatorID: "edu-1", DayOfWeek: 1,
			StartTime: "10:00", EndTime: "12:00", IsActive: true,
		},
	)
	svc := newTestAvailabilityService(rules, nil)

	slots, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "12:00", slots[0].EndTime)
}

func TestAvailabilityServiceResolveIgnoresInactiveRules(t *testing.T) {
	rules := newRuleRepoStub(models.WeeklyAvailabilityRule{
		ID: "rule-1", EducatorID: "edu-1", DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", IsActive: false,
	})
	svc := newTestAvailabilityService(rules, nil)

	slots, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailabilityServiceResolveEmptyTemplate(t *testing.T) {
	svc := newTestAvailabilityService(newRuleRepoStub(), nil)

	slots, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestAvailabilityServiceResolveFullyBookedDay(t *testing.T) {
	rules := newRuleRepoStub(models.WeeklyAvailabilityRule{
		ID: "rule-1", EducatorID: "edu-1", DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", IsActive: true,
	})
	occupied := &occupancyStub{appts: []models.Appointment{{
		ID:              "appt-1",
		EducatorID:      "edu-1",
		AppointmentDate: monday2025,
		StartTime:       "09:00",
		EndTime:         "12:00",
		Status:          models.AppointmentStatusPending,
	}}}
	svc := newTestAvailabilityService(rules, occupied)

	slots, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailabilityServiceResolveRangeTooLarge(t *testing.T) {
	svc := newTestAvailabilityService(newRuleRepoStub(), nil)

	_, err := svc.Resolve(context.Background(), "edu-1", monday2025, monday2025.AddDate(0, 0, 120))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityServiceCreateRuleRejectsInvertedWindow(t *testing.T) {
	svc := newTestAvailabilityService(newRuleRepoStub(), nil)

	_, err := svc.CreateRule(context.Background(), "edu-1", CreateAvailabilityRuleRequest{
		DayOfWeek: 1,
		StartTime: "12:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityServiceUpdateRuleMissing(t *testing.T) {
	svc := newTestAvailabilityService(newRuleRepoStub(), nil)
	active := true

	_, err := svc.UpdateRule(context.Background(), "missing", UpdateAvailabilityRuleRequest{
		DayOfWeek: 1,
		StartTime: "09:00",
		EndTime:   "12:00",
		IsActive:  &active,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
