package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-content-api/internal/models"
)

// CourseVersionRepository reads immutable course version rows. Inserts only
// happen inside the publish transaction (see PublishRepository).
type CourseVersionRepository struct {
	db *sqlx.DB
}

// NewCourseVersionRepository constructs the repository.
func NewCourseVersionRepository(db *sqlx.DB) *CourseVersionRepository {
	return &CourseVersionRepository{db: db}
}

// ListByCourse returns all versions of a course, newest first.
func (r *CourseVersionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseVersion, error) {
	const query = `SELECT id, course_id, version_number, change_log, published_by, created_at FROM course_versions WHERE course_id = $1 ORDER BY version_number DESC`
	var versions []models.CourseVersion
	if err := r.db.SelectContext(ctx, &versions, query, courseID); err != nil {
		return nil, fmt.Errorf("list course versions: %w", err)
	}
	return versions, nil
}

// FindByID returns a version by its ID.
func (r *CourseVersionRepository) FindByID(ctx context.Context, id string) (*models.CourseVersion, error) {
	const query = `SELECT id, course_id, version_number, change_log, published_by, created_at FROM course_versions WHERE id = $1`
	var version models.CourseVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		return nil, err
	}
	return &version, nil
}

// FindLatestByCourse returns the version with the highest number for a
// course. sql.ErrNoRows when the course has never been published.
func (r *CourseVersionRepository) FindLatestByCourse(ctx context.Context, courseID string) (*models.CourseVersion, error) {
	const query = `SELECT id, course_id, version_number, change_log, published_by, created_at FROM course_versions WHERE course_id = $1 ORDER BY version_number DESC LIMIT 1`
	var version models.CourseVersion
	if err := r.db.GetContext(ctx, &version, query, courseID); err != nil {
		return nil, err
	}
	return &version, nil
}
