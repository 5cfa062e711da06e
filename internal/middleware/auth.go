package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"taxengine/internal/authz"
	"taxengine/internal/model"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by Authenticate
const (
	ContextAuthUserID = "authUserID"
	ContextAuthEmail  = "authEmail"
	ContextProfile    = "profile"
)

const missingSecretMessage = "Server configuration error: AUTH_JWT_SECRET is not set"

var (
	ErrMissingSecret = errors.New("auth secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")

	ErrInactiveProfile = errors.New("profile is not active")
)

// ProfileLoader resolves the workspace profile linked to an auth user id
type ProfileLoader interface {
	ProfileFor(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error)
}

// profileCacheEntry stores a copy of a profile with its expiry
type profileCacheEntry struct {
	user      model.TaxEngineUser
	expiresAt time.Time
}

// Authenticator verifies provider-issued access tokens and attaches the caller's profile
type Authenticator struct {
	secret   []byte
	profiles ProfileLoader
	ttl      time.Duration
	cache    sync.Map // auth user id -> profileCacheEntry
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthenticator(secret string, profiles ProfileLoader, ttl time.Duration, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		profiles: profiles,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Identity is what a verified token says about its bearer
type Identity struct {
	AuthUserID uuid.UUID
	Email      string
}

// VerifyToken checks an HS256 token and returns its subject
func (a *Authenticator) VerifyToken(tokenString string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{}, ErrMissingSecret
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return Identity{AuthUserID: id, Email: email}, nil
}

// bearerToken reads the Authorization header, falling back to the access_token cookie
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// Authenticate requires a valid token. The profile is attached when one exists.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.secret) == 0 {
			a.logger.Error("AUTH_JWT_SECRET is not set")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(missingSecretMessage))
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Authorization is missing"))
			return
		}
		identity, err := a.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Invalid token"))
			return
		}
		c.Set(ContextAuthUserID, identity.AuthUserID)
		c.Set(ContextAuthEmail, identity.Email)

		profile, err := a.profile(c.Request.Context(), identity.AuthUserID)
		switch {
		case err == nil:
			c.Set(ContextProfile, profile)
		case errors.Is(err, service.ErrNotFound):
		default:
			a.logger.Error("failed to load profile", zap.String("authUserId", identity.AuthUserID.String()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("Internal server error"))
			return
		}
		c.Next()
	}
}

// profile returns a cached copy of the profile or loads it. Misses are not cached.
func (a *Authenticator) profile(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error) {
	if entry, ok := a.cache.Load(authUserID); ok {
		cached := entry.(profileCacheEntry)
		if a.now().Before(cached.expiresAt) {
			user := cached.user
			return &user, nil
		}
	}

	user, err := a.profiles.ProfileFor(ctx, authUserID)
	if err != nil {
		return nil, err
	}
	a.cache.Store(authUserID, profileCacheEntry{user: *user, expiresAt: a.now().Add(a.ttl)})
	return user, nil
}

// ProfileForToken verifies tokenString and returns the caller's active profile.
// Used where no gin middleware chain runs, such as the websocket upgrade.
func (a *Authenticator) ProfileForToken(ctx context.Context, tokenString string) (*model.TaxEngineUser, error) {
	identity, err := a.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	profile, err := a.profile(ctx, identity.AuthUserID)
	if err != nil {
		return nil, err
	}
	if profile.Status != model.UserStatusActive {
		return nil, ErrInactiveProfile
	}
	return profile, nil
}

// Forget drops a cached profile, e.g. after its role or status changed
func (a *Authenticator) Forget(authUserID *uuid.UUID) {
	if authUserID == nil {
		return
	}
	a.cache.Delete(*authUserID)
}

// ClearCache drops every cached profile
func (a *Authenticator) ClearCache() {
	a.cache.Range(func(key, _ interface{}) bool {
		a.cache.Delete(key)
		return true
	})
}

func checkProfile(c *gin.Context) (*model.TaxEngineUser, bool) {
	profile := CurrentProfile(c)
	if profile == nil {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Profile not found. Create a profile first"))
		return nil, false
	}
	switch profile.Status {
	case model.UserStatusActive:
		return profile, true
	case model.UserStatusPending:
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Account is pending activation"))
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Account is inactive"))
	}
	return nil, false
}

// RequireProfile rejects callers without an active profile. Runs after Authenticate.
func RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := checkProfile(c); !ok {
			return
		}
		c.Next()
	}
}

// RequirePermission rejects callers whose role lacks any of perms. Runs after Authenticate.
func RequirePermission(perms ...authz.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := checkProfile(c)
		if !ok {
			return
		}
		if !authz.Allowed(profile.Role, perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// CurrentProfile returns the profile attached by Authenticate, or nil
func CurrentProfile(c *gin.Context) *model.TaxEngineUser {
	v, ok := c.Get(ContextProfile)
	if !ok {
		return nil
	}
	user, _ := v.(*model.TaxEngineUser)
	return user
}

// CurrentIdentity returns the token subject attached by Authenticate
func CurrentIdentity(c *gin.Context) (uuid.UUID, string) {
	id, _ := c.Get(ContextAuthUserID)
	email, _ := c.Get(ContextAuthEmail)
	authUserID, _ := id.(uuid.UUID)
	e, _ := email.(string)
	return authUserID, e
}
