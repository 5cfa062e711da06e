package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	statisticsService service.StatisticsService
	logger            *zap.Logger
}

func NewDashboardHandler(statisticsService service.StatisticsService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{statisticsService: statisticsService, logger: logger}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", middleware.RequirePermission(authz.DashboardRead), h.GetDashboard)
}

// GetDashboard aggregates workspace counters
// @Summary      Dashboard statistics
// @Description  Client count, periods by status, claims by stage, submissions by status and recent activity
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats, err := h.statisticsService.GetDashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"dashboard": stats})
}
