package handler

import (
	"strconv"

	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications", middleware.RequirePermission(authz.NotificationsRead))
	{
		notifications.GET("", h.List)
		notifications.POST("/:uuid/read", h.MarkRead)
	}
}

// List returns the caller's notifications and the workspace broadcasts
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread query bool false "Only unread notifications"
// @Success      200 {object} map[string]interface{}
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	items, err := h.notificationService.List(c.Request.Context(), middleware.CurrentProfile(c), unreadOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"notifications": items})
}

// MarkRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Notification UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/notifications/{uuid}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, nil)
}
