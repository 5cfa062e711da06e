package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PeriodHandler struct {
	periodService service.PeriodService
	logger        *zap.Logger
}

func NewPeriodHandler(periodService service.PeriodService, logger *zap.Logger) *PeriodHandler {
	return &PeriodHandler{periodService: periodService, logger: logger}
}

type periodStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=not_started in_progress proofing signed issued submitted"`
}

func (h *PeriodHandler) RegisterRoutes(router *gin.RouterGroup) {
	periods := router.Group("/accounting-periods")
	{
		periods.GET("", middleware.RequirePermission(authz.PeriodsRead), h.ListPeriods)
		periods.POST("", middleware.RequirePermission(authz.PeriodsWrite), h.CreatePeriod)
		periods.PATCH("/:uuid", middleware.RequirePermission(authz.PeriodsWrite), h.UpdateStatus)
	}
	router.POST("/clients/:uuid/accounting-periods/generate", middleware.RequirePermission(authz.PeriodsWrite), h.GeneratePeriods)
}

// ListPeriods godoc
// @Summary      List accounting periods
// @Tags         accounting-periods
// @Security     BearerAuth
// @Produce      json
// @Param        clientCompanyUuid query string false "Client UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/accounting-periods [get]
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodService.ListPeriods(c.Request.Context(), c.Query("clientCompanyUuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"accountingPeriods": periods})
}

// CreatePeriod godoc
// @Summary      Create an accounting period
// @Description  Dates are YYYY-MM-DD. A range overlapping another period of the same client is rejected.
// @Tags         accounting-periods
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.CreatePeriodRequest true "Period"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/accounting-periods [post]
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	var req service.CreatePeriodRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.periodService.CreatePeriod(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"accountingPeriod": p})
}

// UpdateStatus godoc
// @Summary      Move an accounting period forward
// @Description  Status never moves backwards
// @Tags         accounting-periods
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string              true "Period UUID"
// @Param        request body periodStatusRequest true "New status"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/accounting-periods/{uuid} [patch]
func (h *PeriodHandler) UpdateStatus(c *gin.Context) {
	var req periodStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.periodService.UpdateStatus(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"accountingPeriod": p})
}

// GeneratePeriods godoc
// @Summary      Generate periods from the client's year-end
// @Description  Inserts whichever of the three generated periods the client does not have yet
// @Tags         accounting-periods
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Client UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /api/clients/{uuid}/accounting-periods/generate [post]
func (h *PeriodHandler) GeneratePeriods(c *gin.Context) {
	periods, err := h.periodService.GeneratePeriods(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"accountingPeriods": periods})
}
