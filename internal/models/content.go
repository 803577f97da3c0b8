package models

import "time"

// ContentType discriminates the payload semantics of a content item.
type ContentType string

// Supported content types.
const (
	ContentTypeText       ContentType = "text"
	ContentTypeVideo      ContentType = "video"
	ContentTypeFile       ContentType = "file"
	ContentTypeQuiz       ContentType = "quiz"
	ContentTypeAssignment ContentType = "assignment"
	ContentTypeProject    ContentType = "project"
)

// Valid reports whether the content type is one of the supported values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeVideo, ContentTypeFile, ContentTypeQuiz, ContentTypeAssignment, ContentTypeProject:
		return true
	}
	return false
}

// DraftModuleContent is an authoring-side content item. OrderIndex is the
// 0-based authoring order; Position mirrors it as order_index + 1.
type DraftModuleContent struct {
	ID            string      `db:"id" json:"id"`
	DraftModuleID string      `db:"draft_module_id" json:"draft_module_id"`
	Type          ContentType `db:"type" json:"type"`
	Title         string      `db:"title" json:"title"`
	Content       string      `db:"content" json:"content"`
	OrderIndex    int         `db:"order_index" json:"order_index"`
	Position      int         `db:"position" json:"position"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// ModuleContent is the published, immutable counterpart of a draft content
// item.
type ModuleContent struct {
	ID         string      `db:"id" json:"id"`
	ModuleID   string      `db:"module_id" json:"module_id"`
	Type       ContentType `db:"type" json:"type"`
	Title      string      `db:"title" json:"title"`
	Content    string      `db:"content" json:"content"`
	OrderIndex int         `db:"order_index" json:"order_index"`
	Position   int         `db:"position" json:"position"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// DraftContentDetail is a draft content item with its optional assignment
// companion.
type DraftContentDetail struct {
	DraftModuleContent
	Assignment *DraftAssignment `json:"assignment,omitempty"`
}

// ContentDetail is a published content item with its optional assignment
// companion.
type ContentDetail struct {
	ModuleContent
	Assignment *Assignment `json:"assignment,omitempty"`
}
