package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
)

func newBlockRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBlockRepositoryExists(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("edu-1", "fam-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	blocked, err := repo.Exists(context.Background(), "edu-1", "fam-1")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO block_relationships")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.BlockRelationship{
		EducatorID: "edu-1",
		FamilyID:   "fam-1",
	})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM block_relationships")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
