package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxengine/internal/authz"
	"taxengine/internal/model"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "provider-secret"

type fakeProfiles struct {
	users map[uuid.UUID]*model.TaxEngineUser
	calls int
}

func (f *fakeProfiles) ProfileFor(_ context.Context, id uuid.UUID) (*model.TaxEngineUser, error) {
	f.calls++
	if u, ok := f.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, service.ErrNotFound
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func tokenFor(t *testing.T, sub uuid.UUID) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"sub":   sub.String(),
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func newAuthRouter(a *Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{a.Authenticate()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, email := CurrentIdentity(c)
		body := gin.H{"sub": id.String(), "email": email}
		if p := CurrentProfile(c); p != nil {
			body["role"] = p.Role
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/whoami", handlers...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_TokenChecks(t *testing.T) {
	a := NewAuthenticator(testSecret, &fakeProfiles{}, time.Minute, zap.NewNop())
	r := newAuthRouter(a)
	sub := uuid.New()

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, "other-secret", jwt.MapClaims{"sub": sub.String()})).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, testSecret, jwt.MapClaims{"sub": "not-a-uuid"})).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, testSecret, jwt.MapClaims{
		"sub": sub.String(), "exp": time.Now().Add(-time.Minute).Unix(),
	})).Code)

	rec := get(r, tokenFor(t, sub))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sub.String())
	assert.Contains(t, rec.Body.String(), "user@example.com")
}

func TestAuthenticate_MissingSecretIsConfigError(t *testing.T) {
	a := NewAuthenticator("", &fakeProfiles{}, time.Minute, zap.NewNop())
	rec := get(newAuthRouter(a), tokenFor(t, uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server configuration error: AUTH_JWT_SECRET is not set"}`, rec.Body.String())
}

func TestRequirePermission(t *testing.T) {
	admin, processor, pending, inactive := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	profiles := &fakeProfiles{users: map[uuid.UUID]*model.TaxEngineUser{
		admin:     {Role: model.RoleAdministrator, Status: model.UserStatusActive},
		processor: {Role: model.RoleClaimProcessor, Status: model.UserStatusActive},
		pending:   {Role: model.RoleAdministrator, Status: model.UserStatusPending},
		inactive:  {Role: model.RoleAdministrator, Status: model.UserStatusInactive},
	}}
	a := NewAuthenticator(testSecret, profiles, time.Minute, zap.NewNop())
	r := newAuthRouter(a, RequirePermission(authz.GatewayManage))

	cases := map[string]struct {
		sub  uuid.UUID
		want int
	}{
		"administrator": {admin, http.StatusOK},
		"processor":     {processor, http.StatusForbidden},
		"pending":       {pending, http.StatusForbidden},
		"inactive":      {inactive, http.StatusForbidden},
		"no profile":    {uuid.New(), http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, get(r, tokenFor(t, tc.sub)).Code)
		})
	}
}

func TestAuthenticate_ProfileOptionalUntilRequired(t *testing.T) {
	a := NewAuthenticator(testSecret, &fakeProfiles{}, time.Minute, zap.NewNop())

	assert.Equal(t, http.StatusOK, get(newAuthRouter(a), tokenFor(t, uuid.New())).Code)
	assert.Equal(t, http.StatusForbidden, get(newAuthRouter(a, RequireProfile()), tokenFor(t, uuid.New())).Code)
}

func TestAuthenticate_CachesProfileCopies(t *testing.T) {
	sub := uuid.New()
	profiles := &fakeProfiles{users: map[uuid.UUID]*model.TaxEngineUser{
		sub: {Role: model.RoleClaimProcessor, Status: model.UserStatusActive},
	}}
	a := NewAuthenticator(testSecret, profiles, time.Minute, zap.NewNop())
	now := time.Now()
	a.now = func() time.Time { return now }

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", a.Authenticate(), func(c *gin.Context) {
		// handlers may mutate their copy without touching the cache
		CurrentProfile(c).Role = "tampered"
		c.Status(http.StatusOK)
	})

	token := tokenFor(t, sub)
	get(r, token)
	get(r, token)
	assert.Equal(t, 1, profiles.calls)

	p, err := a.profile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, model.RoleClaimProcessor, p.Role)

	a.Forget(&sub)
	get(r, token)
	assert.Equal(t, 2, profiles.calls)

	now = now.Add(2 * time.Minute)
	get(r, token)
	assert.Equal(t, 3, profiles.calls)
}

func TestProfileForToken(t *testing.T) {
	active, pending := uuid.New(), uuid.New()
	profileID := uuid.New()
	profiles := &fakeProfiles{users: map[uuid.UUID]*model.TaxEngineUser{
		active:  {UUID: profileID, Role: model.RoleClaimProcessor, Status: model.UserStatusActive},
		pending: {Role: model.RoleClaimProcessor, Status: model.UserStatusPending},
	}}
	a := NewAuthenticator(testSecret, profiles, time.Minute, zap.NewNop())
	ctx := context.Background()

	p, err := a.ProfileForToken(ctx, tokenFor(t, active))
	require.NoError(t, err)
	assert.Equal(t, profileID, p.UUID)

	_, err = a.ProfileForToken(ctx, tokenFor(t, pending))
	assert.ErrorIs(t, err, ErrInactiveProfile)

	_, err = a.ProfileForToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewAuthenticator("", profiles, time.Minute, zap.NewNop()).ProfileForToken(ctx, tokenFor(t, active))
	assert.ErrorIs(t, err, ErrMissingSecret)
}
