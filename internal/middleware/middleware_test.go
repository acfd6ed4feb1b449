package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[email], nil
}

func setup(t *testing.T, users *fakeUsers) (*gin.Engine, *Authorizer, *utils.TokenService) {
	t.Helper()
	tokens, err := utils.NewTokenService("middleware-secret")
	require.NoError(t, err)

	r := gin.New()
	r.Use(Recovery(), ErrorHandler())
	return r, NewAuthorizer(tokens, users), tokens
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"email": Email(c)}) }

func TestRequireIdentity(t *testing.T) {
	r, auth, tokens := setup(t, &fakeUsers{})
	r.GET("/me", auth.RequireIdentity(), ok)

	token, err := tokens.Issue("buyer@example.com", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"message":"unauthorized access"}`, w.Body.String())
			} else {
				assert.JSONEq(t, `{"email":"buyer@example.com"}`, w.Body.String())
			}
		})
	}
}

func TestRequireIdentityQueryTokenOnlyForUpgrades(t *testing.T) {
	r, auth, tokens := setup(t, &fakeUsers{})
	r.GET("/stream", auth.RequireIdentity(), ok)

	token, err := tokens.Issue("buyer@example.com", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/stream?access_token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/stream?access_token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"buyer@example.com"}`, w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"admin@example.com": {Email: "admin@example.com", Role: models.RoleAdmin},
		"user@example.com":  {Email: "user@example.com"},
	}}
	r, auth, tokens := setup(t, users)
	r.GET("/admin", auth.RequireIdentity(), auth.RequireAdmin(), ok)

	admin, _ := tokens.Issue("admin@example.com", "")
	user, _ := tokens.Issue("user@example.com", "")
	ghost, _ := tokens.Issue("ghost@example.com", "")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", admin).Code)

	w := do(r, http.MethodGet, "/admin", user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"forbidden access"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", ghost).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", "").Code)
}

func TestRequireAdminStoreFailure(t *testing.T) {
	r, auth, tokens := setup(t, &fakeUsers{err: errors.New("mongo down")})
	r.GET("/admin", auth.RequireIdentity(), auth.RequireAdmin(), ok)

	token, _ := tokens.Issue("admin@example.com", "")
	w := do(r, http.MethodGet, "/admin", token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, w.Body.String())
}

func TestRequireSeller(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"seller@example.com": {Email: "seller@example.com", Seller: true},
		"buyer@example.com":  {Email: "buyer@example.com"},
	}}
	r, auth, tokens := setup(t, users)
	r.GET("/sell", auth.RequireIdentity(), auth.RequireSeller(), ok)

	seller, _ := tokens.Issue("seller@example.com", "")
	buyer, _ := tokens.Issue("buyer@example.com", "")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/sell", seller).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/sell", buyer).Code)
}

func TestRequireSelf(t *testing.T) {
	r, auth, tokens := setup(t, &fakeUsers{})
	r.GET("/users/:email", auth.RequireIdentity(), auth.RequireSelf("email"), ok)

	token, _ := tokens.Issue("a@example.com", "")
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/users/a@example.com", token).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/users/b@example.com", token).Code)
}

func TestRequireIdentityFor(t *testing.T) {
	r, auth, _ := setup(t, &fakeUsers{})
	guarded := auth.RequireIdentityFor(func(c *gin.Context) bool { return c.Param("key") == "secret" })
	r.GET("/things/:key", guarded, ok)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/public", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/things/secret", "").Code)
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	r, _, _ := setup(t, &fakeUsers{})
	r.GET("/bad", func(c *gin.Context) { _ = c.Error(apperr.BadRequest("invalid id")) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("secret internals")) })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"invalid id"}`, w.Body.String())

	w = do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret internals")

	w = do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, w.Body.String())
}

func TestRequestIDAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ctxRequestID)) })

	w := do(r, http.MethodGet, "/", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORSWildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
