package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-content-api/internal/models"
)

// DraftModuleRepository handles persistence of the authoring-side draft
// modules, their content items, and assignment companion rows.
type DraftModuleRepository struct {
	db *sqlx.DB
}

// NewDraftModuleRepository constructs the repository.
func NewDraftModuleRepository(db *sqlx.DB) *DraftModuleRepository {
	return &DraftModuleRepository{db: db}
}

// ListByCourse returns draft modules for a course ordered by position.
func (r *DraftModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.DraftModule, error) {
	const query = `SELECT id, course_id, title, description, position, created_at, updated_at FROM draft_modules WHERE course_id = $1 ORDER BY position ASC`
	var modules []models.DraftModule
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list draft modules: %w", err)
	}
	return modules, nil
}

// ListDetailByCourse returns draft modules with nested content and
// assignment rows, modules by position and content by order index.
func (r *DraftModuleRepository) ListDetailByCourse(ctx context.Context, courseID string) ([]models.DraftModuleDetail, error) {
	modules, err := r.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	const contentQuery = `SELECT dc.id, dc.draft_module_id, dc.type, dc.title, dc.content, dc.order_index, dc.position, dc.created_at, dc.updated_at
        FROM draft_module_contents dc
        JOIN draft_modules dm ON dm.id = dc.draft_module_id
        WHERE dm.course_id = $1 ORDER BY dc.draft_module_id, dc.order_index ASC`
	var contents []models.DraftModuleContent
	if err := r.db.SelectContext(ctx, &contents, contentQuery, courseID); err != nil {
		return nil, fmt.Errorf("list draft module contents: %w", err)
	}

	const assignmentQuery = `SELECT da.id, da.draft_content_id, da.instructions, da.max_score, da.submission_type, da.due_date, da.created_at, da.updated_at
        FROM draft_assignments da
        JOIN draft_module_contents dc ON dc.id = da.draft_content_id
        JOIN draft_modules dm ON dm.id = dc.draft_module_id
        WHERE dm.course_id = $1`
	var assignments []models.DraftAssignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentQuery, courseID); err != nil {
		return nil, fmt.Errorf("list draft assignments: %w", err)
	}

	assignmentByContent := make(map[string]*models.DraftAssignment, len(assignments))
	for i := range assignments {
		assignmentByContent[assignments[i].DraftContentID] = &assignments[i]
	}

	contentByModule := make(map[string][]models.DraftContentDetail, len(modules))
	for _, c := range contents {
		contentByModule[c.DraftModuleID] = append(contentByModule[c.DraftModuleID], models.DraftContentDetail{
			DraftModuleContent: c,
			Assignment:         assignmentByContent[c.ID],
		})
	}

	details := make([]models.DraftModuleDetail, 0, len(modules))
	for _, m := range modules {
		details = append(details, models.DraftModuleDetail{
			DraftModule: m,
			Content:     contentByModule[m.ID],
		})
	}
	return details, nil
}

// FindByID returns a draft module by its ID.
func (r *DraftModuleRepository) FindByID(ctx context.Context, id string) (*models.DraftModule, error) {
	const query = `SELECT id, course_id, title, description, position, created_at, updated_at FROM draft_modules WHERE id = $1`
	var module models.DraftModule
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// MaxPosition returns the highest sibling position for a course, 0 when the
// course has no draft modules.
func (r *DraftModuleRepository) MaxPosition(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) FROM draft_modules WHERE course_id = $1`
	var max int
	if err := r.db.GetContext(ctx, &max, query, courseID); err != nil {
		return 0, fmt.Errorf("max draft module position: %w", err)
	}
	return max, nil
}

// Create persists a new draft module.
func (r *DraftModuleRepository) Create(ctx context.Context, module *models.DraftModule) error {
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
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create draft module: %w", err)
	}
	return nil
}

// Update applies title and description changes to a draft module.
func (r *DraftModuleRepository) Update(ctx context.Context, module *models.DraftModule) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE draft_modules SET title = :title, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update draft module: %w", err)
	}
	return nil
}

// Delete removes a draft module with its content and assignment rows.
func (r *DraftModuleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_assignments WHERE draft_content_id IN (SELECT id FROM draft_module_contents WHERE draft_module_id = $1)`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete draft assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_module_contents WHERE draft_module_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete draft module contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_modules WHERE id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete draft module: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft module delete: %w", err)
	}
	return nil
}

// UpdatePositions rewrites sibling positions in a single transaction.
func (r *DraftModuleRepository) UpdatePositions(ctx context.Context, updates []models.ModulePositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE draft_modules SET position = $2, updated_at = $3 WHERE id = $1`, u.ID, u.Position, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("update draft module position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft module positions: %w", err)
	}
	return nil
}

// ListContent returns content items of a draft module in authoring order,
// with assignment companions attached.
func (r *DraftModuleRepository) ListContent(ctx context.Context, draftModuleID string) ([]models.DraftContentDetail, error) {
	const query = `SELECT id, draft_module_id, type, title, content, order_index, position, created_at, updated_at FROM draft_module_contents WHERE draft_module_id = $1 ORDER BY order_index ASC`
	var contents []models.DraftModuleContent
	if err := r.db.SelectContext(ctx, &contents, query, draftModuleID); err != nil {
		return nil, fmt.Errorf("list draft content: %w", err)
	}
	details := make([]models.DraftContentDetail, 0, len(contents))
	for _, c := range contents {
		detail := models.DraftContentDetail{DraftModuleContent: c}
		if c.Type == models.ContentTypeAssignment {
			assignment, err := r.FindAssignmentByContent(ctx, c.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			detail.Assignment = assignment
		}
		details = append(details, detail)
	}
	return details, nil
}

// FindContentByID returns a single draft content item.
func (r *DraftModuleRepository) FindContentByID(ctx context.Context, id string) (*models.DraftModuleContent, error) {
	const query = `SELECT id, draft_module_id, type, title, content, order_index, position, created_at, updated_at FROM draft_module_contents WHERE id = $1`
	var content models.DraftModuleContent
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		return nil, err
	}
	return &content, nil
}

// CountContent returns the number of content items under a draft module.
func (r *DraftModuleRepository) CountContent(ctx context.Context, draftModuleID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM draft_module_contents WHERE draft_module_id = $1`, draftModuleID); err != nil {
		return 0, fmt.Errorf("count draft content: %w", err)
	}
	return count, nil
}

// CreateContent persists a content item and, when provided, its assignment
// companion in one transaction.
func (r *DraftModuleRepository) CreateContent(ctx context.Context, content *models.DraftModuleContent, assignment *models.DraftAssignment) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insertContent = `INSERT INTO draft_module_contents (id, draft_module_id, type, title, content, order_index, position, created_at, updated_at)
        VALUES (:id, :draft_module_id, :type, :title, :content, :order_index, :position, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertContent, content); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create draft content: %w", err)
	}
	if assignment != nil {
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		assignment.DraftContentID = content.ID
		if assignment.CreatedAt.IsZero() {
			assignment.CreatedAt = now
		}
		assignment.UpdatedAt = now
		const insertAssignment = `INSERT INTO draft_assignments (id, draft_content_id, instructions, max_score, submission_type, due_date, created_at, updated_at)
            VALUES (:id, :draft_content_id, :instructions, :max_score, :submission_type, :due_date, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertAssignment, assignment); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create draft assignment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft content: %w", err)
	}
	return nil
}

// UpdateContent applies changes to a content item and its assignment
// companion when provided.
func (r *DraftModuleRepository) UpdateContent(ctx context.Context, content *models.DraftModuleContent, assignment *models.DraftAssignment) error {
	now := time.Now().UTC()
	content.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const updateContent = `UPDATE draft_module_contents SET title = :title, content = :content, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateContent, content); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update draft content: %w", err)
	}
	if assignment != nil {
		assignment.DraftContentID = content.ID
		assignment.UpdatedAt = now
		const upsertAssignment = `INSERT INTO draft_assignments (id, draft_content_id, instructions, max_score, submission_type, due_date, created_at, updated_at)
            VALUES (:id, :draft_content_id, :instructions, :max_score, :submission_type, :due_date, :created_at, :updated_at)
            ON CONFLICT (draft_content_id) DO UPDATE SET instructions = EXCLUDED.instructions, max_score = EXCLUDED.max_score, submission_type = EXCLUDED.submission_type, due_date = EXCLUDED.due_date, updated_at = EXCLUDED.updated_at`
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if assignment.CreatedAt.IsZero() {
			assignment.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, upsertAssignment, assignment); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert draft assignment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft content update: %w", err)
	}
	return nil
}

// DeleteContent removes a content item and its assignment companion, then
// closes the order_index gap among the surviving siblings so the next append
// cannot collide with an existing order_index.
func (r *DraftModuleRepository) DeleteContent(ctx context.Context, id, draftModuleID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_assignments WHERE draft_content_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete draft assignment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_module_contents WHERE id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete draft content: %w", err)
	}
	const resequence = `UPDATE draft_module_contents dc
        SET order_index = seq.idx, position = seq.idx + 1, updated_at = $2
        FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY order_index ASC, created_at ASC) - 1 AS idx
              FROM draft_module_contents WHERE draft_module_id = $1) seq
        WHERE dc.id = seq.id AND (dc.order_index <> seq.idx OR dc.position <> seq.idx + 1)`
	if _, err := tx.ExecContext(ctx, resequence, draftModuleID, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("resequence draft content: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft content delete: %w", err)
	}
	return nil
}

// FindAssignmentByContent returns the assignment companion for a draft
// content item.
func (r *DraftModuleRepository) FindAssignmentByContent(ctx context.Context, contentID string) (*models.DraftAssignment, error) {
	const query = `SELECT id, draft_content_id, instructions, max_score, submission_type, due_date, created_at, updated_at FROM draft_assignments WHERE draft_content_id = $1`
	var assignment models.DraftAssignment
	if err := r.db.GetContext(ctx, &assignment, query, contentID); err != nil {
		return nil, err
	}
	return &assignment, nil
}
