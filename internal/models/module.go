package models

import "time"

// DraftModule is the mutable authoring-side module, attached directly to a
// course. Sibling positions are 1-based and must be contiguous before a
// publish is accepted.
type DraftModule struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Position    int       `db:"position" json:"position"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Module is the published, immutable counterpart of a DraftModule, attached
// to a course version.
type Module struct {
	ID              string    `db:"id" json:"id"`
	CourseVersionID string    `db:"course_version_id" json:"course_version_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Position        int       `db:"position" json:"position"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ModulePositionUpdate pairs a module id with its target position.
type ModulePositionUpdate struct {
	ID       string `json:"id" validate:"required"`
	Position int    `json:"position" validate:"required,min=1"`
}

// DraftModuleDetail is a draft module with its ordered content.
type DraftModuleDetail struct {
	DraftModule
	Content []DraftContentDetail `json:"content"`
}

// ModuleDetail is a published module with its ordered content.
type ModuleDetail struct {
	Module
	Content []ContentDetail `json:"content"`
}
