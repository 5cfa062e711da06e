package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClaimHandler struct {
	claimService service.ClaimService
	jobService   service.JobService
	logger       *zap.Logger
}

func NewClaimHandler(claimService service.ClaimService, jobService service.JobService, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{claimService: claimService, jobService: jobService, logger: logger}
}

type advanceRequest struct {
	Step string `json:"step" binding:"required"`
}

type startJobRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *ClaimHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequirePermission(authz.ClaimsRead)
	write := middleware.RequirePermission(authz.ClaimsWrite)

	claims := router.Group("/claims")
	{
		claims.GET("", read, h.ListClaims)
		claims.POST("", write, h.CreateClaim)
		claims.GET("/:uuid", read, h.GetClaim)
		claims.GET("/:uuid/workflow", read, h.GetWorkflow)
		claims.POST("/:uuid/workflow", write, h.AdvanceWorkflow)
		claims.GET("/:uuid/adjustments", read, h.ListAdjustments)
		claims.POST("/:uuid/adjustments", write, h.AddAdjustment)
		claims.POST("/:uuid/jobs", write, h.StartJob)
	}
	router.GET("/jobs/:uuid", read, h.GetJob)
}

// ListClaims godoc
// @Summary      List claim packs
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        clientCompanyUuid query string false "Client UUID"
// @Param        stage             query string false "Claim stage"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/claims [get]
func (h *ClaimHandler) ListClaims(c *gin.Context) {
	claims, err := h.claimService.ListClaims(c.Request.Context(), c.Query("clientCompanyUuid"), c.Query("stage"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"claims": claims})
}

// CreateClaim godoc
// @Summary      Open a claim pack for an accounting period
// @Description  One claim pack per period
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.CreateClaimRequest true "Claim"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/claims [post]
func (h *ClaimHandler) CreateClaim(c *gin.Context) {
	var req service.CreateClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := h.claimService.CreateClaim(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"claim": claim})
}

// GetClaim godoc
// @Summary      Get a claim pack
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Claim UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/claims/{uuid} [get]
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	claim, err := h.claimService.GetClaim(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"claim": claim})
}

// GetWorkflow godoc
// @Summary      Workflow position of a claim pack
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Claim UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/claims/{uuid}/workflow [get]
func (h *ClaimHandler) GetWorkflow(c *gin.Context) {
	view, err := h.claimService.GetWorkflow(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"workflow": view})
}

// AdvanceWorkflow godoc
// @Summary      Move a claim pack to the next workflow step
// @Description  Only the current or the next step is accepted. Steps backed by a processing job enqueue it.
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string         true "Claim UUID"
// @Param        request body advanceRequest true "Target step"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/claims/{uuid}/workflow [post]
func (h *ClaimHandler) AdvanceWorkflow(c *gin.Context) {
	var req advanceRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.claimService.AdvanceWorkflow(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req.Step)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"workflow": view})
}

// ListAdjustments godoc
// @Summary      List adjustments of a claim pack
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Claim UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/claims/{uuid}/adjustments [get]
func (h *ClaimHandler) ListAdjustments(c *gin.Context) {
	adjustments, err := h.claimService.ListAdjustments(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"adjustments": adjustments})
}

// AddAdjustment godoc
// @Summary      Add an adjustment to a claim pack
// @Description  Returns the adjustment and the claim with its recomputed total
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                    true "Claim UUID"
// @Param        request body service.AdjustmentRequest true "Adjustment"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /api/claims/{uuid}/adjustments [post]
func (h *ClaimHandler) AddAdjustment(c *gin.Context) {
	var req service.AdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}

	adj, claim, err := h.claimService.AddAdjustment(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"adjustment": adj, "claim": claim})
}

// StartJob godoc
// @Summary      Queue a processing job for a claim pack
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string          true "Claim UUID"
// @Param        request body startJobRequest true "Job kind"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/claims/{uuid}/jobs [post]
func (h *ClaimHandler) StartJob(c *gin.Context) {
	var req startJobRequest
	if !bindJSON(c, &req) {
		return
	}

	job, err := h.jobService.StartJob(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req.Kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"job": job})
}

// GetJob godoc
// @Summary      Get a processing job
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Job UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/jobs/{uuid} [get]
func (h *ClaimHandler) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"job": job})
}
