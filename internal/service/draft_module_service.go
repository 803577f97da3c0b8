package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-content-api/internal/models"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
)

type draftModuleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.DraftModule, error)
	ListDetailByCourse(ctx context.Context, courseID string) ([]models.DraftModuleDetail, error)
	FindByID(ctx context.Context, id string) (*models.DraftModule, error)
	MaxPosition(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, module *models.DraftModule) error
	Update(ctx context.Context, module *models.DraftModule) error
	Delete(ctx context.Context, id string) error
	UpdatePositions(ctx context.Context, updates []models.ModulePositionUpdate) error
	FindContentByID(ctx context.Context, id string) (*models.DraftModuleContent, error)
	CountContent(ctx context.Context, draftModuleID string) (int, error)
	CreateContent(ctx context.Context, content *models.DraftModuleContent, assignment *models.DraftAssignment) error
	UpdateContent(ctx context.Context, content *models.DraftModuleContent, assignment *models.DraftAssignment) error
	DeleteContent(ctx context.Context, id, draftModuleID string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateDraftModuleRequest describes a new draft module.
type CreateDraftModuleRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// UpdateDraftModuleRequest describes draft module metadata changes.
type UpdateDraftModuleRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// AssignmentPayload carries assignment companion fields.
type AssignmentPayload struct {
	Instructions   string     `json:"instructions" validate:"required"`
	MaxScore       int        `json:"max_score" validate:"required,min=1"`
	SubmissionType string     `json:"submission_type" validate:"required"`
	DueDate        *time.Time `json:"due_date"`
}

// CreateDraftContentRequest describes a new content item.
type CreateDraftContentRequest struct {
	Type       models.ContentType `json:"type" validate:"required"`
	Title      string             `json:"title" validate:"required"`
	Content    string             `json:"content"`
	Assignment *AssignmentPayload `json:"assignment,omitempty"`
}

// UpdateDraftContentRequest describes content item changes.
type UpdateDraftContentRequest struct {
	Title      string             `json:"title" validate:"required"`
	Content    string             `json:"content"`
	Assignment *AssignmentPayload `json:"assignment,omitempty"`
}

// UpdatePositionsRequest carries a full sibling reordering.
type UpdatePositionsRequest struct {
	Positions []models.ModulePositionUpdate `json:"positions" validate:"required,min=1,dive"`
}

// DraftModuleService implements the authoring surface: draft modules and
// their content are freely editable until a publish reseeds them.
type DraftModuleService struct {
	repo      draftModuleRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDraftModuleService constructs DraftModuleService.
func NewDraftModuleService(repo draftModuleRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *DraftModuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftModuleService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns the course's draft modules with nested content,
// sorted by position and order index.
func (s *DraftModuleService) ListByCourse(ctx context.Context, courseID string) ([]models.DraftModuleDetail, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetailByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list draft modules")
	}
	return details, nil
}

// Create appends a draft module at the end of the course's sibling order.
func (s *DraftModuleService) Create(ctx context.Context, courseID string, req CreateDraftModuleRequest) (*models.DraftModule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft module payload")
	}
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}
	max, err := s.repo.MaxPosition(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate position")
	}
	module := &models.DraftModule{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Position:    max + 1,
	}
	if err := s.repo.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create draft module")
	}
	return module, nil
}

// Update changes a draft module's title and description.
func (s *DraftModuleService) Update(ctx context.Context, id string, req UpdateDraftModuleRequest) (*models.DraftModule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft module payload")
	}
	module, err := s.findModule(ctx, id)
	if err != nil {
		return nil, err
	}
	module.Title = req.Title
	module.Description = req.Description
	if err := s.repo.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft module")
	}
	return module, nil
}

// Delete removes a draft module and all its content.
func (s *DraftModuleService) Delete(ctx context.Context, id string) error {
	module, err := s.findModule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, module.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete draft module")
	}
	return nil
}

// UpdatePositions applies a full reordering of a course's draft modules.
// The update must cover exactly the course's modules and form a contiguous
// 1..N sequence.
func (s *DraftModuleService) UpdatePositions(ctx context.Context, courseID string, req UpdatePositionsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid positions payload")
	}
	modules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list draft modules")
	}
	if err := checkPositionOwnership(req.Positions, moduleIDSet(modules), len(modules)); err != nil {
		return err
	}
	if err := s.repo.UpdatePositions(ctx, req.Positions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update positions")
	}
	return nil
}

// CreateContent appends a content item to a draft module. An assignment
// companion payload is only accepted for assignment-typed items; it is
// optional even then.
func (s *DraftModuleService) CreateContent(ctx context.Context, draftModuleID string, req CreateDraftContentRequest) (*models.DraftContentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported content type")
	}
	if req.Assignment != nil && req.Type != models.ContentTypeAssignment {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment detail is only allowed for assignment content")
	}
	module, err := s.findModule(ctx, draftModuleID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountContent(ctx, module.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count content")
	}

	content := &models.DraftModuleContent{
		DraftModuleID: module.ID,
		Type:          req.Type,
		Title:         req.Title,
		Content:       req.Content,
		OrderIndex:    count,
		Position:      count + 1,
	}
	var assignment *models.DraftAssignment
	if req.Assignment != nil {
		assignment = &models.DraftAssignment{
			Instructions:   req.Assignment.Instructions,
			MaxScore:       req.Assignment.MaxScore,
			SubmissionType: req.Assignment.SubmissionType,
			DueDate:        req.Assignment.DueDate,
		}
	}
	if err := s.repo.CreateContent(ctx, content, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}
	return &models.DraftContentDetail{DraftModuleContent: *content, Assignment: assignment}, nil
}

// UpdateContent changes a content item's title, payload, and assignment
// companion.
func (s *DraftModuleService) UpdateContent(ctx context.Context, contentID string, req UpdateDraftContentRequest) (*models.DraftContentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	content, err := s.repo.FindContentByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch content")
	}
	if req.Assignment != nil && content.Type != models.ContentTypeAssignment {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment detail is only allowed for assignment content")
	}
	content.Title = req.Title
	content.Content = req.Content
	var assignment *models.DraftAssignment
	if req.Assignment != nil {
		assignment = &models.DraftAssignment{
			Instructions:   req.Assignment.Instructions,
			MaxScore:       req.Assignment.MaxScore,
			SubmissionType: req.Assignment.SubmissionType,
			DueDate:        req.Assignment.DueDate,
		}
	}
	if err := s.repo.UpdateContent(ctx, content, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}
	return &models.DraftContentDetail{DraftModuleContent: *content, Assignment: assignment}, nil
}

// DeleteContent removes a content item. The last remaining item of a module
// cannot be deleted.
func (s *DraftModuleService) DeleteContent(ctx context.Context, contentID string) error {
	content, err := s.repo.FindContentByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch content")
	}
	count, err := s.repo.CountContent(ctx, content.DraftModuleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count content")
	}
	if count <= 1 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "a module must keep at least one content item")
	}
	if err := s.repo.DeleteContent(ctx, content.ID, content.DraftModuleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}
	return nil
}

func (s *DraftModuleService) ensureCourse(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}
	return nil
}

func (s *DraftModuleService) findModule(ctx context.Context, id string) (*models.DraftModule, error) {
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch draft module")
	}
	return module, nil
}

func moduleIDSet(modules []models.DraftModule) map[string]struct{} {
	set := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		set[m.ID] = struct{}{}
	}
	return set
}

// checkPositionOwnership asserts a reordering covers exactly the known
// sibling set and forms a contiguous 1..N sequence.
func checkPositionOwnership(updates []models.ModulePositionUpdate, known map[string]struct{}, total int) error {
	if len(updates) != total {
		return appErrors.Clone(appErrors.ErrValidation, "positions update must cover every module")
	}
	seen := make(map[string]struct{}, len(updates))
	positions := make([]int, 0, len(updates))
	for _, u := range updates {
		if _, ok := known[u.ID]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, "module does not belong to this course")
		}
		if _, dup := seen[u.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "duplicate module in positions update")
		}
		seen[u.ID] = struct{}{}
		positions = append(positions, u.Position)
	}
	return validateSequentialPositions(positions)
}
