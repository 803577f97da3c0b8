package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-content-api/internal/service"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
	"github.com/noah-isme/lms-content-api/pkg/response"
)

// DraftModuleHandler exposes the authoring surface for draft modules and
// draft content items.
type DraftModuleHandler struct {
	drafts *service.DraftModuleService
}

// NewDraftModuleHandler constructs a draft module handler.
func NewDraftModuleHandler(drafts *service.DraftModuleService) *DraftModuleHandler {
	return &DraftModuleHandler{drafts: drafts}
}

// ListByCourse godoc
// @Summary List draft modules with their content
// @Tags Drafts
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/draft-modules [get]
func (h *DraftModuleHandler) ListByCourse(c *gin.Context) {
	modules, err := h.drafts.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, modules, nil)
}

// Create godoc
// @Summary Create a draft module at the end of the course
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CreateDraftModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/draft-modules [post]
func (h *DraftModuleHandler) Create(c *gin.Context) {
	var req service.CreateDraftModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.drafts.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// Update godoc
// @Summary Update a draft module
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft module ID"
// @Param payload body service.UpdateDraftModuleRequest true "Module payload"
// @Success 200 {object} response.Envelope
// @Router /draft-modules/{id} [put]
func (h *DraftModuleHandler) Update(c *gin.Context) {
	var req service.UpdateDraftModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.drafts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// Delete godoc
// @Summary Delete a draft module and its content
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft module ID"
// @Success 204
// @Router /draft-modules/{id} [delete]
func (h *DraftModuleHandler) Delete(c *gin.Context) {
	if err := h.drafts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdatePositions godoc
// @Summary Reorder the course's draft modules
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdatePositionsRequest true "Positions payload"
// @Success 204
// @Router /courses/{id}/draft-modules/positions [put]
func (h *DraftModuleHandler) UpdatePositions(c *gin.Context) {
	var req service.UpdatePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.drafts.UpdatePositions(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateContent godoc
// @Summary Add a content item to a draft module
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft module ID"
// @Param payload body service.CreateDraftContentRequest true "Content payload"
// @Success 201 {object} response.Envelope
// @Router /draft-modules/{id}/contents [post]
func (h *DraftModuleHandler) CreateContent(c *gin.Context) {
	var req service.CreateDraftContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.drafts.CreateContent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, content)
}

// UpdateContent godoc
// @Summary Update a draft content item
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft content ID"
// @Param payload body service.UpdateDraftContentRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Router /draft-contents/{id} [put]
func (h *DraftModuleHandler) UpdateContent(c *gin.Context) {
	var req service.UpdateDraftContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.drafts.UpdateContent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// DeleteContent godoc
// @Summary Delete a draft content item
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft content ID"
// @Success 204
// @Router /draft-contents/{id} [delete]
func (h *DraftModuleHandler) DeleteContent(c *gin.Context) {
	if err := h.drafts.DeleteContent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
