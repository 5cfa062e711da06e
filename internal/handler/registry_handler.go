package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegistryHandler proxies Companies House lookups
type RegistryHandler struct {
	registryService service.RegistryService
	logger          *zap.Logger
}

func NewRegistryHandler(registryService service.RegistryService, logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{registryService: registryService, logger: logger}
}

func (h *RegistryHandler) RegisterRoutes(router *gin.RouterGroup) {
	ch := router.Group("/companies-house", middleware.RequirePermission(authz.RegistryLookup))
	{
		ch.GET("/search", h.Search)
		ch.GET("/company/:number", h.Company)
	}
}

// Search godoc
// @Summary      Search the company register
// @Tags         companies-house
// @Security     BearerAuth
// @Produce      json
// @Param        q query string true "Name or number"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      500 {object} response.ErrorBody
// @Router       /api/companies-house/search [get]
func (h *RegistryHandler) Search(c *gin.Context) {
	res, err := h.registryService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"companies": res.Items, "totalResults": res.TotalResults})
}

// Company godoc
// @Summary      Company profile from the register
// @Tags         companies-house
// @Security     BearerAuth
// @Produce      json
// @Param        number path string true "Company number"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Failure      500 {object} response.ErrorBody
// @Router       /api/companies-house/company/{number} [get]
func (h *RegistryHandler) Company(c *gin.Context) {
	profile, err := h.registryService.Company(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"company": profile})
}
