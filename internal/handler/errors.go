package handler

import (
	"errors"
	"net/http"

	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		service.UseJSONFieldNames(v)
	}
}

// respondError writes the error body for err. Caller-facing service errors keep
// their message; anything else is logged and hidden behind a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var upstream *service.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(upstreamStatus(upstream.StatusCode), response.Error(upstream.Error()))
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusFor(err), response.Error(svcErr.Error()))
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, response.Error(internalErrorMessage))
}

// upstreamStatus passes registry errors through. Anything that is not a
// 4xx or 5xx would make an invalid error response, so it becomes 502.
func upstreamStatus(code int) int {
	if code < http.StatusBadRequest || code > 599 {
		return http.StatusBadGateway
	}
	return code
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes and validates the request body, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(service.ValidationMessage(err)))
		return false
	}
	return true
}

func ok(c *gin.Context, payload map[string]interface{}) {
	c.JSON(http.StatusOK, response.Success(payload))
}
