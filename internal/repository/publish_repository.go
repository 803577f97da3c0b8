package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-content-api/internal/models"
)

// PublishStore exposes the writes available inside a publish transaction.
// Every method runs on the same transaction; nothing is visible to other
// sessions until the surrounding WithinPublish commits.
type PublishStore interface {
	NextVersionNumber(ctx context.Context, courseID string) (int, error)
	InsertCourseVersion(ctx context.Context, version *models.CourseVersion) error
	InsertModule(ctx context.Context, module *models.Module) error
	CopyDraftContentToModule(ctx context.Context, draftModuleID, moduleID string) (int, error)
	MarkCoursePublished(ctx context.Context, courseID string) error
	DeleteDraftModules(ctx context.Context, courseID string) error
	InsertDraftModule(ctx context.Context, module *models.DraftModule) error
	CopyModuleContentToDraft(ctx context.Context, moduleID, draftModuleID string) (int, error)
}

// PublishRepository owns the transactional boundary of the publish pipeline.
type PublishRepository struct {
	db *sqlx.DB
}

// NewPublishRepository constructs the repository.
func NewPublishRepository(db *sqlx.DB) *PublishRepository {
	return &PublishRepository{db: db}
}

// WithinPublish runs fn inside a single transaction holding an advisory
// lock keyed by the course. Concurrent publishes of the same course
// serialize here, so two callers can never allocate the same version
// number. The lock is released automatically at commit or rollback.
func (r *PublishRepository) WithinPublish(ctx context.Context, courseID string, fn func(store PublishStore) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryKey64("course_publish", courseID)); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("acquire publish lock: %w", err)
	}
	if err := fn(&publishTx{tx: tx}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}

func advisoryKey64(namespace, id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}

type publishTx struct {
	tx *sqlx.Tx
}

// NextVersionNumber folds existing versions of the course to max + 1.
func (p *publishTx) NextVersionNumber(ctx context.Context, courseID string) (int, error) {
	var next int
	if err := p.tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(version_number), 0) + 1 FROM course_versions WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("allocate version number: %w", err)
	}
	return next, nil
}

// InsertCourseVersion writes the immutable version row.
func (p *publishTx) InsertCourseVersion(ctx context.Context, version *models.CourseVersion) error {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_versions (id, course_id, version_number, change_log, published_by, created_at)
        VALUES (:id, :course_id, :version_number, :change_log, :published_by, :created_at)`
	if _, err := p.tx.NamedExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("insert course version: %w", err)
	}
	return nil
}

// InsertModule writes a published module row.
func (p *publishTx) InsertModule(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	if module.CreatedAt.IsZero() {
		module.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO modules (id, course_version_id, title, description, position, created_at)
        VALUES (:id, :course_version_id, :title, :description, :position, :created_at)`
	if _, err := p.tx.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

// MarkCoursePublished flips the course status.
func (p *publishTx) MarkCoursePublished(ctx context.Context, courseID string) error {
	if _, err := p.tx.ExecContext(ctx, `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1`, courseID, models.CourseStatusPublished, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark course published: %w", err)
	}
	return nil
}

// DeleteDraftModules clears the draft workspace of a course: assignment
// rows, content rows, then the modules themselves.
func (p *publishTx) DeleteDraftModules(ctx context.Context, courseID string) error {
	if _, err := p.tx.ExecContext(ctx, `DELETE FROM draft_assignments WHERE draft_content_id IN (
            SELECT dc.id FROM draft_module_contents dc
            JOIN draft_modules dm ON dm.id = dc.draft_module_id
            WHERE dm.course_id = $1)`, courseID); err != nil {
		return fmt.Errorf("clear draft assignments: %w", err)
	}
	if _, err := p.tx.ExecContext(ctx, `DELETE FROM draft_module_contents WHERE draft_module_id IN (
            SELECT id FROM draft_modules WHERE course_id = $1)`, courseID); err != nil {
		return fmt.Errorf("clear draft module contents: %w", err)
	}
	if _, err := p.tx.ExecContext(ctx, `DELETE FROM draft_modules WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear draft modules: %w", err)
	}
	return nil
}

// InsertDraftModule writes a reseeded draft module row.
func (p *publishTx) InsertDraftModule(ctx context.Context, module *models.DraftModule) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.UpdatedAt = now
	const query = `INSERT INTO draft_modules (id, course_id, title, description, position, created_at, updated_at)
        VALUES (:id, :course_id, :title, :description, :position, :created_at, :updated_at)`
	if _, err := p.tx.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("insert draft module: %w", err)
	}
	return nil
}

// CopyDraftContentToModule copies a draft module's content into a published
// module, returning the number of content rows copied.
func (p *publishTx) CopyDraftContentToModule(ctx context.Context, draftModuleID, moduleID string) (int, error) {
	return p.copyContent(ctx, draftToPublished, draftModuleID, moduleID)
}

// CopyModuleContentToDraft copies a published module's content back into a
// reseeded draft module, returning the number of content rows copied.
func (p *publishTx) CopyModuleContentToDraft(ctx context.Context, moduleID, draftModuleID string) (int, error) {
	return p.copyContent(ctx, publishedToDraft, moduleID, draftModuleID)
}

// copyTables names the source and destination tables for one copy
// direction.
type copyTables struct {
	srcContent   string
	srcParentCol string
	srcAssign    string
	srcAssignCol string
	dstContent   string
	dstParentCol string
	dstAssign    string
	dstAssignCol string
}

var draftToPublished = copyTables{
	srcContent:   "draft_module_contents",
	srcParentCol: "draft_module_id",
	srcAssign:    "draft_assignments",
	srcAssignCol: "draft_content_id",
	dstContent:   "module_contents",
	dstParentCol: "module_id",
	dstAssign:    "assignments",
	dstAssignCol: "content_id",
}

var publishedToDraft = copyTables{
	srcContent:   "module_contents",
	srcParentCol: "module_id",
	srcAssign:    "assignments",
	srcAssignCol: "content_id",
	dstContent:   "draft_module_contents",
	dstParentCol: "draft_module_id",
	dstAssign:    "draft_assignments",
	dstAssignCol: "draft_content_id",
}

type copiedContentRow struct {
	ID         string             `db:"id"`
	Type       models.ContentType `db:"type"`
	Title      string             `db:"title"`
	Content    string             `db:"content"`
	OrderIndex int                `db:"order_index"`
}

type copiedAssignmentRow struct {
	Instructions   string     `db:"instructions"`
	MaxScore       int        `db:"max_score"`
	SubmissionType string     `db:"submission_type"`
	DueDate        *time.Time `db:"due_date"`
}

// copyContent duplicates content rows from one container to another in
// order_index order. Position is recomputed from the copy's own sequence so
// the destination is contiguous even when the source was not. Assignment
// companion rows are carried verbatim; a missing companion is skipped, not
// an error.
func (p *publishTx) copyContent(ctx context.Context, t copyTables, srcID, dstID string) (int, error) {
	selectSrc := fmt.Sprintf(`SELECT id, type, title, content, order_index FROM %s WHERE %s = $1 ORDER BY order_index ASC`, t.srcContent, t.srcParentCol)
	var rows []copiedContentRow
	if err := p.tx.SelectContext(ctx, &rows, selectSrc, srcID); err != nil {
		return 0, fmt.Errorf("read %s: %w", t.srcContent, err)
	}

	insertContent := fmt.Sprintf(`INSERT INTO %s (id, %s, type, title, content, order_index, position, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, t.dstContent, t.dstParentCol)
	selectAssign := fmt.Sprintf(`SELECT instructions, max_score, submission_type, due_date FROM %s WHERE %s = $1`, t.srcAssign, t.srcAssignCol)
	insertAssign := fmt.Sprintf(`INSERT INTO %s (id, %s, instructions, max_score, submission_type, due_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`, t.dstAssign, t.dstAssignCol)

	now := time.Now().UTC()
	for i, row := range rows {
		newID := uuid.NewString()
		if _, err := p.tx.ExecContext(ctx, insertContent, newID, dstID, row.Type, row.Title, row.Content, row.OrderIndex, i+1, now); err != nil {
			return 0, fmt.Errorf("copy content row: %w", err)
		}
		if row.Type != models.ContentTypeAssignment {
			continue
		}
		var assignment copiedAssignmentRow
		if err := p.tx.GetContext(ctx, &assignment, selectAssign, row.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return 0, fmt.Errorf("read assignment companion: %w", err)
		}
		if _, err := p.tx.ExecContext(ctx, insertAssign, uuid.NewString(), newID, assignment.Instructions, assignment.MaxScore, assignment.SubmissionType, assignment.DueDate, now); err != nil {
			return 0, fmt.Errorf("copy assignment companion: %w", err)
		}
	}
	return len(rows), nil
}
