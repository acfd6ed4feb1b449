package cart

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/repository"
	"podreseller_back_end/internal/services"
)

type Store interface {
	Insert(ctx context.Context, item *models.CartItem) (models.InsertResult, error)
	ByEmail(ctx context.Context, email string) ([]models.CartItem, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, string, error)
}

// Feed carries cart change notifications to open cart streams.
type Feed interface {
	Publish(ctx context.Context, email, event string) error
	Subscribe(ctx context.Context, email string) (<-chan string, func(), error)
}

type Handler struct {
	store Store
	feed  Feed
}

func NewHandler(store Store, feed Feed) *Handler {
	return &Handler{store: store, feed: feed}
}

// Add handles POST /carts.
func (h *Handler) Add(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		_ = c.Error(apperr.BadRequest("invalid cart item"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.store.Insert(ctx, &item)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.notify(ctx, item.Email, services.CartUpdated)
	c.JSON(http.StatusOK, res)
}

// List handles GET /carts?email=. Without an email the cart is empty.
func (h *Handler) List(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusOK, []models.CartItem{})
		return
	}

	items, err := h.store.ByEmail(c.Request.Context(), email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Remove handles DELETE /carts/:id.
func (h *Handler) Remove(c *gin.Context) {
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
	h.notify(ctx, email, services.CartUpdated)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) notify(ctx context.Context, email, event string) {
	if h.feed == nil || email == "" {
		return
	}
	if err := h.feed.Publish(ctx, email, event); err != nil {
		logger.WithCtx(ctx).Warn("publish cart event", "email", email, "event", event, "error", err)
	}
}
