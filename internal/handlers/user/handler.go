package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/repository"
)

type Store interface {
	All(ctx context.Context) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) (models.InsertResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, string, error)
	PromoteAdmin(ctx context.Context, id primitive.ObjectID) (models.UpdateResult, string, error)
}

// RoleCache is told when a user's role may have changed.
type RoleCache interface {
	Invalidate(ctx context.Context, email string)
}

type Handler struct {
	store Store
	roles RoleCache
}

func NewHandler(store Store, roles RoleCache) *Handler {
	return &Handler{store: store, roles: roles}
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	users, err := h.store.All(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Create handles POST /users. Signing in twice with the same email is not an
// error: the second call gets the already-exists marker. The admin role is
// only granted through Promote, never by the sign-up body.
func (h *Handler) Create(c *gin.Context) {
	var u models.User
	if err := c.ShouldBindJSON(&u); err != nil {
		_ = c.Error(apperr.BadRequest("invalid user body"))
		return
	}
	u.Role = ""
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		_ = c.Error(apperr.BadRequest("email is required"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.store.Insert(ctx, &u)
	if errors.Is(err, repository.ErrUserExists) {
		c.JSON(http.StatusOK, gin.H{"message": "User Already Exist", "insertedId": nil})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.WithCtx(ctx).Info("user created", "email", u.Email)
	h.invalidate(ctx, u.Email)
	c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	res, email, err := h.store.Delete(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.invalidate(ctx, email)
	c.JSON(http.StatusOK, res)
}

// IsAdmin handles GET /users/admin/:email.
func (h *Handler) IsAdmin(c *gin.Context) {
	u, err := h.store.FindByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": u != nil && u.IsAdmin()})
}

// Promote handles PATCH /users/admin/:id.
func (h *Handler) Promote(c *gin.Context) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	res, email, err := h.store.PromoteAdmin(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if res.ModifiedCount > 0 {
		logger.WithCtx(ctx).Info("user promoted to admin", "email", email)
	}
	h.invalidate(ctx, email)
	c.JSON(http.StatusOK, res)
}

// IsSeller handles GET /users/seller/:email.
func (h *Handler) IsSeller(c *gin.Context) {
	u, err := h.store.FindByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": u != nil && u.Seller})
}

func (h *Handler) invalidate(ctx context.Context, email string) {
	if h.roles != nil && email != "" {
		h.roles.Invalidate(ctx, email)
	}
}
