package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	templateService service.TemplateService
	logger          *zap.Logger
}

func NewTemplateHandler(templateService service.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, logger: logger}
}

func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequirePermission(authz.TemplatesRead)
	write := middleware.RequirePermission(authz.TemplatesWrite)

	templates := router.Group("/templates")
	{
		templates.GET("", read, h.ListTemplates)
		templates.POST("", write, h.CreateTemplate)
		templates.GET("/:uuid", read, h.GetTemplate)
		templates.PATCH("/:uuid", write, h.UpdateTemplate)
		templates.DELETE("/:uuid", write, h.DeleteTemplate)
	}
}

// ListTemplates godoc
// @Summary      List document and email templates
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        kind query string false "Template kind"
// @Success      200 {object} map[string]interface{}
// @Router       /api/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.ListTemplates(c.Request.Context(), c.Query("kind"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"templates": templates})
}

// GetTemplate godoc
// @Summary      Get a template
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Template UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/templates/{uuid} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"template": tpl})
}

// CreateTemplate godoc
// @Summary      Create a template
// @Description  The slug is derived from the name when omitted and suffixed when taken
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.TemplateRequest true "Template"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tpl, err := h.templateService.CreateTemplate(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"template": tpl})
}

// UpdateTemplate godoc
// @Summary      Update a template
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                        true "Template UUID"
// @Param        request body service.UpdateTemplateRequest true "Fields to change"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /api/templates/{uuid} [patch]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tpl, err := h.templateService.UpdateTemplate(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"template": tpl})
}

// DeleteTemplate godoc
// @Summary      Delete a template
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Template UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/templates/{uuid} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, nil)
}
