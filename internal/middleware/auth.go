package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/utils"
)

const (
	ctxEmail  = "email"
	ctxClaims = "claims"
)

type TokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authorizer builds the per-route guard chain.
type Authorizer struct {
	tokens TokenVerifier
	users  UserFinder
}

func NewAuthorizer(tokens TokenVerifier, users UserFinder) *Authorizer {
	return &Authorizer{tokens: tokens, users: users}
}

// Email returns the identity set by RequireIdentity.
func Email(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// RequireIdentity accepts "Authorization: Bearer <token>" and stores the
// verified email in the context. Browsers cannot set headers on a WebSocket
// handshake, so upgrade requests may pass the token as ?access_token=.
func (a *Authorizer) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, apperr.ErrUnauthenticated)
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ctxEmail, claims.Email)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireIdentityFor applies RequireIdentity only to requests matching pred.
func (a *Authorizer) RequireIdentityFor(pred func(*gin.Context) bool) gin.HandlerFunc {
	identity := a.RequireIdentity()
	return func(c *gin.Context) {
		if !pred(c) {
			c.Next()
			return
		}
		identity(c)
	}
}

// RequireAdmin must run after RequireIdentity.
func (a *Authorizer) RequireAdmin() gin.HandlerFunc {
	return a.requireUser("admin", models.User.IsAdmin)
}

// RequireSeller must run after RequireIdentity.
func (a *Authorizer) RequireSeller() gin.HandlerFunc {
	return a.requireUser("seller", func(u models.User) bool { return u.Seller })
}

func (a *Authorizer) requireUser(role string, allowed func(models.User) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := Email(c)
		if email == "" {
			abort(c, apperr.ErrUnauthenticated)
			return
		}

		user, err := a.users.FindByEmail(c.Request.Context(), email)
		if err != nil {
			abort(c, fmt.Errorf("look up %s role: %w", role, err))
			return
		}
		if user == nil || !allowed(*user) {
			abort(c, apperr.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireSelf rejects requests whose path parameter differs from the identity.
func (a *Authorizer) RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param(param) != Email(c) {
			abort(c, apperr.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
