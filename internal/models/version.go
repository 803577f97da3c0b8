package models

import "time"

// CourseVersion is an immutable snapshot boundary for a course. Version
// numbers start at 1 and increase by one per publish; rows are never
// updated or deleted once written.
type CourseVersion struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	ChangeLog     string    `db:"change_log" json:"change_log"`
	PublishedBy   *string   `db:"published_by" json:"published_by,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PublishResult is returned by a successful publish.
type PublishResult struct {
	CourseVersionID string `json:"course_version_id"`
	VersionNumber   int    `json:"version_number"`
}
