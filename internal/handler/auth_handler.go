package handler

import (
	"net/http"

	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileCache drops cached profiles after they change
type ProfileCache interface {
	Forget(authUserID *uuid.UUID)
}

type AuthHandler struct {
	userService service.UserService
	profiles    ProfileCache
	logger      *zap.Logger
}

func NewAuthHandler(userService service.UserService, profiles ProfileCache, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, profiles: profiles, logger: logger}
}

// RegisterRoutes expects router to already run Authenticate
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/create-profile", h.CreateProfile)
		auth.POST("/track-login", middleware.RequireProfile(), h.TrackLogin)
		auth.GET("/me", h.Me)
	}
}

// CreateProfile godoc
// @Summary      Create the caller's profile
// @Description  Links the token subject to a workspace profile. The first profile becomes an administrator and a pending invitation with the same email is claimed.
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.CreateProfileRequest true "Profile"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/auth/create-profile [post]
func (h *AuthHandler) CreateProfile(c *gin.Context) {
	var req service.CreateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	authUserID, email := middleware.CurrentIdentity(c)
	user, err := h.userService.CreateProfile(c.Request.Context(), service.Identity{AuthUserID: authUserID, Email: email}, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.profiles.Forget(user.AuthUserID)

	ok(c, map[string]interface{}{
		"profile":     user,
		"permissions": authz.PermissionsFor(user.Role),
	})
}

// TrackLogin godoc
// @Summary      Record a sign-in
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} response.ErrorBody
// @Router       /api/auth/track-login [post]
func (h *AuthHandler) TrackLogin(c *gin.Context) {
	user, err := h.userService.TrackLogin(c.Request.Context(), middleware.CurrentProfile(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.profiles.Forget(user.AuthUserID)

	ok(c, map[string]interface{}{"profile": user})
}

// Me godoc
// @Summary      Current profile and permissions
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		c.JSON(http.StatusNotFound, response.Error("Profile not found"))
		return
	}

	ok(c, map[string]interface{}{
		"profile":     profile,
		"permissions": authz.PermissionsFor(profile.Role),
	})
}
