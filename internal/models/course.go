package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseStatus represents the publication lifecycle of a course.
type CourseStatus string

// Possible course statuses. A course stays in draft until its first
// successful publish.
const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
)

// Course is the catalog entry that draft and published content hang off.
type Course struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	DepartmentID *string        `db:"department_id" json:"department_id,omitempty"`
	Status       CourseStatus   `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	DepartmentID string
	Status       CourseStatus
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
