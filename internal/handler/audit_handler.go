package handler

import (
	"net/http"
	"strconv"

	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	logger       *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", middleware.RequirePermission(authz.AuditRead), h.GetAuditLogs)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Newest first. limit defaults to 50 and is capped at 500.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        limit             query int    false "Maximum rows"
// @Param        category          query string false "Audit category, e.g. CLAIM"
// @Param        clientCompanyUuid query string false "Client UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	q := service.AuditQuery{
		Category:          c.Query("category"),
		ClientCompanyUUID: c.Query("clientCompanyUuid"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error("limit must be a number"))
			return
		}
		q.Limit = limit
	}

	logs, err := h.auditService.GetAuditLogs(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"logs": logs})
}
