package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-content-api/internal/models"
)

// ModuleRepository reads published module snapshots. Published rows are
// written only by the publish transaction; the single mutation here is the
// position repair hatch.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByVersion returns the modules of a course version ordered by position.
func (r *ModuleRepository) ListByVersion(ctx context.Context, versionID string) ([]models.Module, error) {
	const query = `SELECT id, course_version_id, title, description, position, created_at FROM modules WHERE course_version_id = $1 ORDER BY position ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, versionID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// ListDetailByVersion returns modules with nested content and assignment
// rows, modules by position and content by order index.
func (r *ModuleRepository) ListDetailByVersion(ctx context.Context, versionID string) ([]models.ModuleDetail, error) {
	modules, err := r.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	const contentQuery = `SELECT mc.id, mc.module_id, mc.type, mc.title, mc.content, mc.order_index, mc.position, mc.created_at
        FROM module_contents mc
        JOIN modules m ON m.id = mc.module_id
        WHERE m.course_version_id = $1 ORDER BY mc.module_id, mc.order_index ASC`
	var contents []models.ModuleContent
	if err := r.db.SelectContext(ctx, &contents, contentQuery, versionID); err != nil {
		return nil, fmt.Errorf("list module contents: %w", err)
	}

	const assignmentQuery = `SELECT a.id, a.content_id, a.instructions, a.max_score, a.submission_type, a.due_date, a.created_at
        FROM assignments a
        JOIN module_contents mc ON mc.id = a.content_id
        JOIN modules m ON m.id = mc.module_id
        WHERE m.course_version_id = $1`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentQuery, versionID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	assignmentByContent := make(map[string]*models.Assignment, len(assignments))
	for i := range assignments {
		assignmentByContent[assignments[i].ContentID] = &assignments[i]
	}

	contentByModule := make(map[string][]models.ContentDetail, len(modules))
	for _, c := range contents {
		contentByModule[c.ModuleID] = append(contentByModule[c.ModuleID], models.ContentDetail{
			ModuleContent: c,
			Assignment:    assignmentByContent[c.ID],
		})
	}

	details := make([]models.ModuleDetail, 0, len(modules))
	for _, m := range modules {
		details = append(details, models.ModuleDetail{
			Module:  m,
			Content: contentByModule[m.ID],
		})
	}
	return details, nil
}

// UpdatePositions repositions already-published modules. This breaks the
// snapshot-immutability rule on purpose: it exists as an admin repair hatch
// and every call is audit logged at the handler layer.
func (r *ModuleRepository) UpdatePositions(ctx context.Context, updates []models.ModulePositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE modules SET position = $2 WHERE id = $1`, u.ID, u.Position); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("update module position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit module positions: %w", err)
	}
	return nil
}
