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

	"github.com/noah-isme/lms-content-api/internal/models"
)

func newDraftMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDraftModuleRepositoryListDetailByCourse(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM draft_modules WHERE course_id = $1 ORDER BY position ASC")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title", "description", "position", "created_at", "updated_at"}).
			AddRow("d1", "course-1", "Intro", "", 1, now, now).
			AddRow("d2", "course-1", "Advanced", "", 2, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM draft_module_contents dc")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "draft_module_id", "type", "title", "content", "order_index", "position", "created_at", "updated_at"}).
			AddRow("c1", "d1", "text", "Reading", "...", 0, 1, now, now).
			AddRow("c2", "d1", "assignment", "Homework", "", 1, 2, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM draft_assignments da")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "draft_content_id", "instructions", "max_score", "submission_type", "due_date", "created_at", "updated_at"}).
			AddRow("a1", "c2", "Do it", 80, "file", nil, now, now))

	details, err := repo.ListDetailByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, details, 2)
	require.Len(t, details[0].Content, 2)
	assert.Nil(t, details[0].Content[0].Assignment)
	require.NotNil(t, details[0].Content[1].Assignment)
	assert.Equal(t, 80, details[0].Content[1].Assignment.MaxScore)
	assert.Empty(t, details[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryMaxPosition(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(position), 0) FROM draft_modules WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))

	max, err := repo.MaxPosition(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}

func TestDraftModuleRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_assignments WHERE draft_content_id IN")).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_module_contents WHERE draft_module_id = $1")).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_modules WHERE id = $1")).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "d1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryUpdatePositions(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE draft_modules SET position = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("d2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE draft_modules SET position = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("d1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdatePositions(context.Background(), []models.ModulePositionUpdate{
		{ID: "d2", Position: 1},
		{ID: "d1", Position: 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryUpdatePositionsEmptyNoop(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	require.NoError(t, repo.UpdatePositions(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryCreateContentWithAssignment(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO draft_module_contents").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO draft_assignments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	content := &models.DraftModuleContent{DraftModuleID: "d1", Type: models.ContentTypeAssignment, Title: "Homework", OrderIndex: 0, Position: 1}
	assignment := &models.DraftAssignment{Instructions: "Do it", MaxScore: 80, SubmissionType: "file"}
	require.NoError(t, repo.CreateContent(context.Background(), content, assignment))
	assert.Equal(t, content.ID, assignment.DraftContentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryUpdateContentUpsertsAssignment(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE draft_module_contents SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (draft_content_id) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	content := &models.DraftModuleContent{ID: "c2", DraftModuleID: "d1", Type: models.ContentTypeAssignment, Title: "Homework v2"}
	assignment := &models.DraftAssignment{Instructions: "Redo it", MaxScore: 90, SubmissionType: "file"}
	require.NoError(t, repo.UpdateContent(context.Background(), content, assignment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftModuleRepositoryDeleteContent(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftModuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_assignments WHERE draft_content_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_module_contents WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET order_index = seq.idx, position = seq.idx + 1")).
		WithArgs("d1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteContent(context.Background(), "c1", "d1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
