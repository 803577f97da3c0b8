package models

import "time"

// DraftAssignment is the 1:1 companion row for a draft content item of type
// "assignment".
type DraftAssignment struct {
	ID             string     `db:"id" json:"id"`
	DraftContentID string     `db:"draft_content_id" json:"draft_content_id"`
	Instructions   string     `db:"instructions" json:"instructions"`
	MaxScore       int        `db:"max_score" json:"max_score"`
	SubmissionType string     `db:"submission_type" json:"submission_type"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Assignment is the published companion row for a content item of type
// "assignment".
type Assignment struct {
	ID             string     `db:"id" json:"id"`
	ContentID      string     `db:"content_id" json:"content_id"`
	Instructions   string     `db:"instructions" json:"instructions"`
	MaxScore       int        `db:"max_score" json:"max_score"`
	SubmissionType string     `db:"submission_type" json:"submission_type"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
