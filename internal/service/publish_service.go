package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-content-api/internal/models"
	"github.com/noah-isme/lms-content-api/internal/repository"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
)

type publishCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type publishDraftRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.DraftModule, error)
	UpdatePositions(ctx context.Context, updates []models.ModulePositionUpdate) error
}

type publishRunner interface {
	WithinPublish(ctx context.Context, courseID string, fn func(store repository.PublishStore) error) error
}

type catalogInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// PublishService orchestrates the draft-to-published pipeline: validate
// draft state, allocate a version, materialize the published snapshot, flip
// the course status, and reseed the draft workspace from the snapshot.
type PublishService struct {
	courses publishCourseReader
	drafts  publishDraftRepository
	publish publishRunner
	cache   catalogInvalidator
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPublishService constructs PublishService.
func NewPublishService(courses publishCourseReader, drafts publishDraftRepository, publish publishRunner, cache catalogInvalidator, metrics *MetricsService, logger *zap.Logger) *PublishService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishService{courses: courses, drafts: drafts, publish: publish, cache: cache, metrics: metrics, logger: logger}
}

// Publish runs the full pipeline for a course. The changeLog is optional;
// when empty a default "Published version N" entry is recorded. The
// allocate/materialize/finalize/reseed steps run inside one transaction
// serialized per course, so a failure at any point leaves no partial
// snapshot behind.
func (s *PublishService) Publish(ctx context.Context, courseID, changeLog string, publishedBy *string) (*models.PublishResult, error) {
	start := time.Now()

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}

	drafts, err := s.drafts.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch draft modules")
	}
	if len(drafts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no draft modules to publish")
	}

	if updates := normalizeModulePositions(drafts); len(updates) > 0 {
		if err := s.drafts.UpdatePositions(ctx, updates); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to normalize module positions")
		}
		drafts, err = s.drafts.ListByCourse(ctx, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-fetch draft modules")
		}
	}

	positions := make([]int, len(drafts))
	for i, d := range drafts {
		positions[i] = d.Position
	}
	if err := validateSequentialPositions(positions); err != nil {
		return nil, err
	}

	var result models.PublishResult
	var contentCopied int
	err = s.publish.WithinPublish(ctx, courseID, func(store repository.PublishStore) error {
		number, err := store.NextVersionNumber(ctx, courseID)
		if err != nil {
			return err
		}

		log := changeLog
		if log == "" {
			log = fmt.Sprintf("Published version %d", number)
		}
		version := &models.CourseVersion{CourseID: courseID, VersionNumber: number, ChangeLog: log, PublishedBy: publishedBy}
		if err := store.InsertCourseVersion(ctx, version); err != nil {
			return err
		}

		published := make([]models.Module, 0, len(drafts))
		for _, draft := range drafts {
			module := &models.Module{
				CourseVersionID: version.ID,
				Title:           draft.Title,
				Description:     draft.Description,
				Position:        draft.Position,
			}
			if err := store.InsertModule(ctx, module); err != nil {
				return err
			}
			copied, err := store.CopyDraftContentToModule(ctx, draft.ID, module.ID)
			if err != nil {
				return err
			}
			contentCopied += copied
			published = append(published, *module)
		}

		if err := store.MarkCoursePublished(ctx, courseID); err != nil {
			return err
		}

		// Reseed: the draft workspace is reset to exactly match the
		// snapshot that was just published.
		if err := store.DeleteDraftModules(ctx, courseID); err != nil {
			return err
		}
		for _, module := range published {
			draft := &models.DraftModule{
				CourseID:    courseID,
				Title:       module.Title,
				Description: module.Description,
				Position:    module.Position,
			}
			if err := store.InsertDraftModule(ctx, draft); err != nil {
				return err
			}
			if _, err := store.CopyModuleContentToDraft(ctx, module.ID, draft.ID); err != nil {
				return err
			}
		}

		result = models.PublishResult{CourseVersionID: version.ID, VersionNumber: number}
		return nil
	})
	if err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "publish failed")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, latestModulesCacheKey(courseID)); err != nil {
			s.logger.Warn("failed to invalidate catalog cache", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	s.metrics.RecordPublish(len(drafts), contentCopied, time.Since(start))
	s.logger.Info("course published",
		zap.String("course_id", courseID),
		zap.Int("version_number", result.VersionNumber),
		zap.Int("modules", len(drafts)),
		zap.Int("content_items", contentCopied),
	)

	return &result, nil
}
