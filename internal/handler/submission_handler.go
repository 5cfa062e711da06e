package handler

import (
	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
	logger            *zap.Logger
}

func NewSubmissionHandler(submissionService service.SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, logger: logger}
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	write := middleware.RequirePermission(authz.SubmissionsWrite)

	submissions := router.Group("/submissions")
	{
		submissions.GET("", middleware.RequirePermission(authz.SubmissionsRead), h.ListSubmissions)
		submissions.POST("", write, h.CreateSubmission)
		submissions.POST("/:uuid/submit", write, h.Submit)
		submissions.PATCH("/:uuid", write, h.RecordOutcome)
	}
}

// ListSubmissions godoc
// @Summary      List HMRC submissions
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        claimPackUuid query string false "Claim UUID"
// @Success      200 {object} map[string]interface{}
// @Router       /api/submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	subs, err := h.submissionService.ListSubmissions(c.Request.Context(), c.Query("claimPackUuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"submissions": subs})
}

// CreateSubmission godoc
// @Summary      Prepare a submission for a claim pack
// @Description  The claim pack must have reached the submission step
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.CreateSubmissionRequest true "Submission"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/submissions [post]
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionService.CreateSubmission(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"submission": sub})
}

// Submit godoc
// @Summary      Send a prepared submission through the gateway
// @Description  The gateway must be connected and gatewayPassword must match the stored credential
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                true "Submission UUID"
// @Param        request body service.SubmitRequest true "Gateway password"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/submissions/{uuid}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"submission": sub})
}

// RecordOutcome godoc
// @Summary      Record HMRC's answer for a submission
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                           true "Submission UUID"
// @Param        request body service.SubmissionOutcomeRequest true "Outcome"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/submissions/{uuid} [patch]
func (h *SubmissionHandler) RecordOutcome(c *gin.Context) {
	var req service.SubmissionOutcomeRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionService.RecordOutcome(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"submission": sub})
}
