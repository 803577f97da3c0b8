package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-content-api/api/swagger"
	"github.com/noah-isme/lms-content-api/internal/handler"
	"github.com/noah-isme/lms-content-api/internal/middleware"
	"github.com/noah-isme/lms-content-api/internal/models"
	"github.com/noah-isme/lms-content-api/internal/repository"
	"github.com/noah-isme/lms-content-api/internal/service"
	"github.com/noah-isme/lms-content-api/pkg/cache"
	"github.com/noah-isme/lms-content-api/pkg/config"
	"github.com/noah-isme/lms-content-api/pkg/database"
	"github.com/noah-isme/lms-content-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-content-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-content-api/pkg/middleware/requestid"
)

// @title LMS Content API
// @version 1.0.0
// @description Course content authoring, versioning and publishing service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	versionRepo := repository.NewCourseVersionRepository(db)
	draftRepo := repository.NewDraftModuleRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	publishRepo := repository.NewPublishRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	catalogClient := redisClient
	if !cfg.Catalog.CacheEnabled {
		catalogClient = nil
	}
	cacheRepo := repository.NewCacheRepository(catalogClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)
	auditSvc := service.NewAuditService(auditRepo, logr)
	auditSvc.Start(context.Background())
	defer auditSvc.Stop()
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	draftSvc := service.NewDraftModuleService(draftRepo, courseRepo, validate, logr)

	moduleSvc := service.NewModuleService(versionRepo, moduleRepo, courseRepo, cacheRepo, cfg.Catalog.CacheTTL, metricsSvc, validate, logr)
	publishSvc := service.NewPublishService(courseRepo, draftRepo, publishRepo, cacheRepo, metricsSvc, logr)

	var exportSvc *service.ExportService
	if cfg.Export.Enabled {
		exportSvc = service.NewExportService(courseRepo, versionRepo, moduleRepo, logr)
	}

	courseHandler := handler.NewCourseHandler(courseSvc, publishSvc)
	draftHandler := handler.NewDraftModuleHandler(draftSvc)
	moduleHandler := handler.NewModuleHandler(moduleSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	reads := api.Group("")
	reads.Use(middleware.OptionalJWT(tokenSvc))
	{
		reads.GET("/courses", courseHandler.List)
		reads.GET("/courses/:id", courseHandler.Get)
		reads.GET("/courses/:id/modules", moduleHandler.LatestModules)
		reads.GET("/courses/:id/versions", moduleHandler.ListVersions)
		reads.GET("/courses/:id/versions/:versionId/export", moduleHandler.ExportOutline)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(tokenSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/courses", courseHandler.Create)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id",
			middleware.Audit(auditSvc, models.AuditActionCourseDelete, "courses"),
			courseHandler.Delete)
		admin.POST("/courses/:id/publish",
			middleware.Audit(auditSvc, models.AuditActionCoursePublish, "courses"),
			courseHandler.Publish)

		admin.GET("/courses/:id/draft-modules", draftHandler.ListByCourse)
		admin.POST("/courses/:id/draft-modules", draftHandler.Create)
		admin.PUT("/courses/:id/draft-modules/positions",
			middleware.Audit(auditSvc, models.AuditActionDraftPositionsUpdate, "draft_modules"),
			draftHandler.UpdatePositions)
		admin.PUT("/draft-modules/:id", draftHandler.Update)
		admin.DELETE("/draft-modules/:id", draftHandler.Delete)
		admin.POST("/draft-modules/:id/contents", draftHandler.CreateContent)
		admin.PUT("/draft-contents/:id", draftHandler.UpdateContent)
		admin.DELETE("/draft-contents/:id", draftHandler.DeleteContent)

		admin.PUT("/courses/:id/modules/positions",
			middleware.Audit(auditSvc, models.AuditActionModulePositionsUpdate, "modules"),
			moduleHandler.UpdatePositions)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
