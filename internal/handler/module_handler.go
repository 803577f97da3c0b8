package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-content-api/internal/middleware"
	"github.com/noah-isme/lms-content-api/internal/service"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
	"github.com/noah-isme/lms-content-api/pkg/response"
)

// ModuleHandler exposes the published catalog: latest modules, version
// history, the published-position repair endpoint, and outline exports.
type ModuleHandler struct {
	modules *service.ModuleService
	exports *service.ExportService
}

// NewModuleHandler constructs a module handler.
func NewModuleHandler(modules *service.ModuleService, exports *service.ExportService) *ModuleHandler {
	return &ModuleHandler{modules: modules, exports: exports}
}

// LatestModules godoc
// @Summary List modules of the latest published version
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/modules [get]
func (h *ModuleHandler) LatestModules(c *gin.Context) {
	modules, fromCache, err := h.modules.GetLatestModules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, modules, nil, middleware.ExtractMeta(c))
}

// ListVersions godoc
// @Summary List the course's published versions, newest first
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/versions [get]
func (h *ModuleHandler) ListVersions(c *gin.Context) {
	versions, err := h.modules.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// UpdatePositions godoc
// @Summary Reorder modules of the latest published version
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdatePositionsRequest true "Positions payload"
// @Success 204
// @Router /courses/{id}/modules/positions [put]
func (h *ModuleHandler) UpdatePositions(c *gin.Context) {
	var req service.UpdatePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.modules.UpdateModulePositions(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportOutline godoc
// @Summary Download a version outline as CSV or PDF
// @Tags Catalog
// @Produce octet-stream
// @Param id path string true "Course ID"
// @Param versionId path string true "Version ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /courses/{id}/versions/{versionId}/export [get]
func (h *ModuleHandler) ExportOutline(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.VersionOutline(c.Request.Context(), c.Param("id"), c.Param("versionId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
