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

func newPublishMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWithinPublishCommits(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version_number), 0) + 1 FROM course_versions WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectCommit()

	var allocated int
	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		number, err := store.NextVersionNumber(context.Background(), "course-1")
		if err != nil {
			return err
		}
		allocated = number
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, allocated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinPublishRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinPublishSerializesOnCourseKey(t *testing.T) {
	// Same course must hash to the same advisory key, distinct courses to
	// distinct keys, or the lock would not serialize anything.
	assert.Equal(t, advisoryKey64("course_publish", "course-1"), advisoryKey64("course_publish", "course-1"))
	assert.NotEqual(t, advisoryKey64("course_publish", "course-1"), advisoryKey64("course_publish", "course-2"))
}

func TestPublishTxCopiesDraftContent(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, title, content, order_index FROM draft_module_contents WHERE draft_module_id = $1 ORDER BY order_index ASC")).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "title", "content", "order_index"}).
			AddRow("dc1", "text", "Intro", "hello", 0).
			AddRow("dc2", "assignment", "Implement Raft", "", 1))
	// text row at position 1
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO module_contents (id, module_id, type, title, content, order_index, position, created_at)")).
		WithArgs(sqlmock.AnyArg(), "mod-1", models.ContentTypeText, "Intro", "hello", 0, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// assignment row at position 2, companion carried along
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO module_contents (id, module_id, type, title, content, order_index, position, created_at)")).
		WithArgs(sqlmock.AnyArg(), "mod-1", models.ContentTypeAssignment, "Implement Raft", "", 1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructions, max_score, submission_type, due_date FROM draft_assignments WHERE draft_content_id = $1")).
		WithArgs("dc2").
		WillReturnRows(sqlmock.NewRows([]string{"instructions", "max_score", "submission_type", "due_date"}).
			AddRow("Build it", 100, "file", now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments (id, content_id, instructions, max_score, submission_type, due_date, created_at)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Build it", 100, "file", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var copied int
	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		n, err := store.CopyDraftContentToModule(context.Background(), "draft-1", "mod-1")
		copied = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishTxCopySkipsMissingAssignmentCompanion(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, title, content, order_index FROM draft_module_contents WHERE draft_module_id = $1 ORDER BY order_index ASC")).
		WithArgs("draft-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "title", "content", "order_index"}).
			AddRow("dc1", "assignment", "Orphaned homework", "", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO module_contents (id, module_id, type, title, content, order_index, position, created_at)")).
		WithArgs(sqlmock.AnyArg(), "mod-1", models.ContentTypeAssignment, "Orphaned homework", "", 0, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// companion lookup finds nothing; the content row is still copied and no
	// assignment row is fabricated
	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructions, max_score, submission_type, due_date FROM draft_assignments WHERE draft_content_id = $1")).
		WithArgs("dc1").
		WillReturnRows(sqlmock.NewRows([]string{"instructions", "max_score", "submission_type", "due_date"}))
	mock.ExpectCommit()

	var copied int
	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		n, err := store.CopyDraftContentToModule(context.Background(), "draft-1", "mod-1")
		copied = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishTxCopiesPublishedContentBackToDraft(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, title, content, order_index FROM module_contents WHERE module_id = $1 ORDER BY order_index ASC")).
		WithArgs("mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "title", "content", "order_index"}).
			AddRow("mc1", "assignment", "Implement Raft", "", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO draft_module_contents (id, draft_module_id, type, title, content, order_index, position, created_at)")).
		WithArgs(sqlmock.AnyArg(), "reseed-1", models.ContentTypeAssignment, "Implement Raft", "", 0, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructions, max_score, submission_type, due_date FROM assignments WHERE content_id = $1")).
		WithArgs("mc1").
		WillReturnRows(sqlmock.NewRows([]string{"instructions", "max_score", "submission_type", "due_date"}).
			AddRow("Build it", 100, "file", nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO draft_assignments (id, draft_content_id, instructions, max_score, submission_type, due_date, created_at)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Build it", 100, "file", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var copied int
	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		n, err := store.CopyModuleContentToDraft(context.Background(), "mod-1", "reseed-1")
		copied = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishTxDeleteDraftModulesClearsAllThreeTables(t *testing.T) {
	db, mock, cleanup := newPublishMock(t)
	defer cleanup()
	repo := NewPublishRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_assignments WHERE draft_content_id IN")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_module_contents WHERE draft_module_id IN")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM draft_modules WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.WithinPublish(context.Background(), "course-1", func(store PublishStore) error {
		return store.DeleteDraftModules(context.Background(), "course-1")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
