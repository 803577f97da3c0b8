package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVersionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func versionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "course_id", "version_number", "change_log", "published_by", "created_at"})
}

func TestCourseVersionRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newVersionMock(t)
	defer cleanup()
	repo := NewCourseVersionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_versions WHERE course_id = $1 ORDER BY version_number DESC")).
		WithArgs("course-1").
		WillReturnRows(versionRows().
			AddRow("v2", "course-1", 2, "Second pass", "admin-1", now).
			AddRow("v1", "course-1", 1, "Published version 1", nil, now))

	versions, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	require.NotNil(t, versions[0].PublishedBy)
	assert.Equal(t, "admin-1", *versions[0].PublishedBy)
	assert.Nil(t, versions[1].PublishedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseVersionRepositoryFindLatestByCourse(t *testing.T) {
	db, mock, cleanup := newVersionMock(t)
	defer cleanup()
	repo := NewCourseVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version_number DESC LIMIT 1")).
		WithArgs("course-1").
		WillReturnRows(versionRows().AddRow("v3", "course-1", 3, "Third pass", nil, time.Now()))

	version, err := repo.FindLatestByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "v3", version.ID)
	assert.Equal(t, 3, version.VersionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseVersionRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newVersionMock(t)
	defer cleanup()
	repo := NewCourseVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_versions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
