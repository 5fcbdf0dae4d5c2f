package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
)

func newRuleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRuleRepositoryListActiveByEducator(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRuleRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "educator_id", "day_of_week", "start_time", "end_time", "is_active", "created_at", "updated_at",
	}).AddRow("rule-1", "edu-1", 1, "09:00", "12:00", true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("is_active = TRUE")).
		WithArgs("edu-1").
		WillReturnRows(rows)

	rules, err := repo.ListActiveByEducator(context.Background(), "edu-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].DayOfWeek)
	assert.Equal(t, "09:00", rules[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRuleRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_availability_rules")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.WeeklyAvailabilityRule{
		EducatorID: "edu-1",
		DayOfWeek:  1,
		StartTime:  "09:00",
		EndTime:    "12:00",
		IsActive:   true,
	}
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRuleRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("is_active = FALSE")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
