package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/service"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/response"
)

type availabilityServiceMock struct {
	slots      []models.AvailableSlot
	resolveErr error
	rules      []models.WeeklyAvailabilityRule
	rule       *models.WeeklyAvailabilityRule
	ruleErr    error
	lastFrom   time.Time
	lastTo     time.Time
}

func (m *availabilityServiceMock) Resolve(ctx context.Context, educatorID string, from, to time.Time) ([]models.AvailableSlot, error) {
	m.lastFrom = from
	m.lastTo = to
	return m.slots, m.resolveErr
}

func (m *availabilityServiceMock) ListRules(ctx context.Context, educatorID string) ([]models.WeeklyAvailabilityRule, error) {
	return m.rules, m.ruleErr
}

func (m *availabilityServiceMock) CreateRule(ctx context.Context, educatorID string, req service.CreateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error) {
	return m.rule, m.ruleErr
}

func (m *availabilityServiceMock) UpdateRule(ctx context.Context, ruleID string, req service.UpdateAvailabilityRuleRequest) (*models.WeeklyAvailabilityRule, error) {
	return m.rule, m.ruleErr
}

func (m *availabilityServiceMock) DeactivateRule(ctx context.Context, ruleID string) error {
	return m.ruleErr
}

func TestAvailabilityHandlerResolve(t *testing.T) {
	mockSvc := &availabilityServiceMock{
		slots: []models.AvailableSlot{{
			Date:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			StartTime: "09:00",
			EndTime:   "10:00",
		}},
	}
	handler := NewAvailabilityHandler(mockSvc, nil)

	c, w := newAppointmentTestContext(t, http.MethodGet,
		"/availability?educatorId=edu-1&from=2025-03-10&to=2025-03-16", nil)

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), mockSvc.lastFrom)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestAvailabilityHandlerResolveMissingDates(t *testing.T) {
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, nil)

	c, w := newAppointmentTestContext(t, http.MethodGet, "/availability?educatorId=edu-1", nil)

	handler.Resolve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerCreateRule(t *testing.T) {
	mockSvc := &availabilityServiceMock{
		rule: &models.WeeklyAvailabilityRule{ID: "rule-1", DayOfWeek: 1},
	}
	handler := NewAvailabilityHandler(mockSvc, nil)

	payload, _ := json.Marshal(service.CreateAvailabilityRuleRequest{
		DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00",
	})
	c, w := newAppointmentTestContext(t, http.MethodPost, "/educators/edu-1/availability-rules", payload)
	c.Params = gin.Params{{Key: "educatorId", Value: "edu-1"}}

	handler.CreateRule(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestAvailabilityHandlerDeactivateRuleMissing(t *testing.T) {
	mockSvc := &availabilityServiceMock{
		ruleErr: appErrors.Clone(appErrors.ErrNotFound, "availability rule not found"),
	}
	handler := NewAvailabilityHandler(mockSvc, nil)

	c, w := newAppointmentTestContext(t, http.MethodDelete, "/availability-rules/missing", nil)
	c.Params = gin.Params{{Key: "ruleId", Value: "missing"}}

	handler.DeactivateRule(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
