package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settingsService service.SettingsService
	logger          *zap.Logger
}

func NewSettingsHandler(settingsService service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logger: logger}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	gateway := router.Group("/settings/gateway", middleware.RequirePermission(authz.GatewayManage))
	{
		gateway.GET("", h.GetGateway)
		gateway.PUT("", h.SaveGateway)
		gateway.DELETE("", h.DisconnectGateway)
	}

	billing := router.Group("/settings/billing", middleware.RequirePermission(authz.BillingManage))
	{
		billing.GET("", h.GetBilling)
		billing.PUT("", h.SaveBilling)
	}
}

// GetGateway godoc
// @Summary      Government Gateway connection
// @Description  The stored password hash is never returned
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} service.GatewayStatus
// @Router       /api/settings/gateway [get]
func (h *SettingsHandler) GetGateway(c *gin.Context) {
	status, err := h.settingsService.GetGateway(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"configured": status.Configured, "gateway": status.Gateway})
}

// SaveGateway godoc
// @Summary      Connect the Government Gateway
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.GatewayRequest true "Gateway credentials"
// @Success      200 {object} service.GatewayStatus
// @Failure      400 {object} response.ErrorBody
// @Router       /api/settings/gateway [put]
func (h *SettingsHandler) SaveGateway(c *gin.Context) {
	var req service.GatewayRequest
	if !bindJSON(c, &req) {
		return
	}

	status, err := h.settingsService.SaveGateway(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"configured": status.Configured, "gateway": status.Gateway})
}

// DisconnectGateway godoc
// @Summary      Disconnect the Government Gateway
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/settings/gateway [delete]
func (h *SettingsHandler) DisconnectGateway(c *gin.Context) {
	if err := h.settingsService.DisconnectGateway(c.Request.Context(), middleware.CurrentProfile(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"configured": false})
}

// GetBilling godoc
// @Summary      Billing profile
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/settings/billing [get]
func (h *SettingsHandler) GetBilling(c *gin.Context) {
	billing, err := h.settingsService.GetBilling(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"billing": billing})
}

// SaveBilling godoc
// @Summary      Update the billing profile
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.BillingRequest true "Billing"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/settings/billing [put]
func (h *SettingsHandler) SaveBilling(c *gin.Context) {
	var req service.BillingRequest
	if !bindJSON(c, &req) {
		return
	}

	billing, err := h.settingsService.SaveBilling(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"billing": billing})
}
