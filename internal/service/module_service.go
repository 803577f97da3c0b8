package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-content-api/internal/models"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
)

type versionRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseVersion, error)
	FindByID(ctx context.Context, id string) (*models.CourseVersion, error)
	FindLatestByCourse(ctx context.Context, courseID string) (*models.CourseVersion, error)
}

type moduleRepository interface {
	ListByVersion(ctx context.Context, versionID string) ([]models.Module, error)
	ListDetailByVersion(ctx context.Context, versionID string) ([]models.ModuleDetail, error)
	UpdatePositions(ctx context.Context, updates []models.ModulePositionUpdate) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func latestModulesCacheKey(courseID string) string {
	return fmt.Sprintf("course:modules:latest:%s", courseID)
}

// ModuleService serves the read side of published course content plus the
// published-position repair hatch.
type ModuleService struct {
	versions  versionRepository
	modules   moduleRepository
	courses   courseReader
	cache     catalogCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs ModuleService. A nil cache disables caching.
func NewModuleService(versions versionRepository, modules moduleRepository, courses courseReader, cache catalogCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{versions: versions, modules: modules, courses: courses, cache: cache, cacheTTL: cacheTTL, metrics: metrics, validator: validate, logger: logger}
}

// GetLatestModules resolves the course's highest-numbered version and
// returns its modules with nested content. The second return reports
// whether the payload was served from cache.
func (s *ModuleService) GetLatestModules(ctx context.Context, courseID string) ([]models.ModuleDetail, bool, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}

	if s.cache != nil {
		start := time.Now()
		var cached []models.ModuleDetail
		err := s.cache.Get(ctx, latestModulesCacheKey(courseID), &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return cached, true, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}

	version, err := s.versions.FindLatestByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course has no published version")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve latest version")
	}

	details, err := s.modules.ListDetailByVersion(ctx, version.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, latestModulesCacheKey(courseID), details, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("course_id", courseID), zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return details, false, nil
}

// ListVersions returns a course's versions, newest first.
func (s *ModuleService) ListVersions(ctx context.Context, courseID string) ([]models.CourseVersion, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}
	versions, err := s.versions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// UpdateModulePositions repositions modules of the course's latest
// published version. Published snapshots are otherwise immutable; this
// hatch exists for fixing ordering mistakes without cutting a new version
// and is audit logged at the route level.
func (s *ModuleService) UpdateModulePositions(ctx context.Context, courseID string, req UpdatePositionsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid positions payload")
	}
	version, err := s.versions.FindLatestByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course has no published version")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve latest version")
	}
	modules, err := s.modules.ListByVersion(ctx, version.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	known := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		known[m.ID] = struct{}{}
	}
	if err := checkPositionOwnership(req.Positions, known, len(modules)); err != nil {
		return err
	}
	if err := s.modules.UpdatePositions(ctx, req.Positions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update positions")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, latestModulesCacheKey(courseID)); err != nil {
			s.logger.Warn("failed to invalidate catalog cache", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return nil
}
