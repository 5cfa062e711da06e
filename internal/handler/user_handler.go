package handler

import (
	"net/http"

	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService service.UserService
	profiles    ProfileCache
	logger      *zap.Logger
}

// NewUserHandler sets up the routing dependencies for user management endpoints
func NewUserHandler(userService service.UserService, profiles ProfileCache, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, profiles: profiles, logger: logger}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	manage := middleware.RequirePermission(authz.UsersManage)

	users := router.Group("/users")
	{
		users.GET("", manage, h.ListUsers)
		users.POST("/invite", manage, h.InviteUser)
		users.PATCH("/:uuid", manage, h.UpdateUser)
	}
	router.GET("/roles", middleware.RequireProfile(), h.ListRoles)
}

// ListUsers returns every workspace profile, pending invitations included
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page  query int false "Page number (default 1)"
// @Param        limit query int false "Items per page (default 20, max 100)"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} response.ErrorBody
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := pagination.Parse(c)

	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination("users", pageOf(users, params), params.Page, params.Limit, int64(len(users))))
}

// InviteUser creates a pending profile that is claimed on first sign-in
// @Summary      Invite a user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.InviteUserRequest true "Invitation"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/users/invite [post]
func (h *UserHandler) InviteUser(c *gin.Context) {
	var req service.InviteUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.InviteUser(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"user": user})
}

// UpdateUser changes a profile's name, role or status
// @Summary      Update a user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                    true "User UUID"
// @Param        request body service.UpdateUserRequest true "Fields to change"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /api/users/{uuid} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.profiles.Forget(user.AuthUserID)

	ok(c, map[string]interface{}{"user": user})
}

// ListRoles returns the fixed role matrix
// @Summary      List roles and their permissions
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/roles [get]
func (h *UserHandler) ListRoles(c *gin.Context) {
	ok(c, map[string]interface{}{"roles": authz.Roles()})
}
