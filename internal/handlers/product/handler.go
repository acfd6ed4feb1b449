package product

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/repository"
	"podreseller_back_end/internal/services"
)

const (
	indexTimeout   = 10 * time.Second
	maxImageSize   = 10 << 20
	imageFormField = "file"
)

type Store interface {
	All(ctx context.Context) ([]models.Product, error)
	ByCategory(ctx context.Context, category string) ([]models.Product, error)
	BySeller(ctx context.Context, sellerName string) ([]models.Product, error)
	ByID(ctx context.Context, id primitive.ObjectID) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	Insert(ctx context.Context, p *models.Product) (models.InsertResult, error)
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (models.UpdateResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, error)
}

type Index interface {
	Index(ctx context.Context, p models.Product) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]models.Product, error)
}

type Images interface {
	Upload(ctx context.Context, productID, filename string, r io.Reader, size int64, contentType string) (string, error)
}

type Handler struct {
	store  Store
	index  Index
	images Images

	// async runs index maintenance off the request path.
	async func(ctx context.Context, task func(context.Context))
}

func NewHandler(store Store, index Index, images Images) *Handler {
	return &Handler{store: store, index: index, images: images, async: background}
}

func background(ctx context.Context, task func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, indexTimeout)
		defer cancel()
		task(ctx)
	}()
}

// IsProductID reports whether the :key segment addresses a single product
// rather than a category.
func IsProductID(c *gin.Context) bool {
	return primitive.IsValidObjectID(c.Param("key"))
}

// List handles GET /products.
func (h *Handler) List(c *gin.Context) {
	products, err := h.store.All(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// ByKey handles GET /products/:key. An ObjectID returns that product (or an
// empty list); anything else is treated as a category name.
func (h *Handler) ByKey(c *gin.Context) {
	key := c.Param("key")
	ctx := c.Request.Context()

	var (
		products []models.Product
		err      error
	)
	if oid, parseErr := primitive.ObjectIDFromHex(key); parseErr == nil {
		products, err = h.store.ByID(ctx, oid)
	} else {
		products, err = h.store.ByCategory(ctx, key)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Create handles POST /products.
func (h *Handler) Create(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(apperr.BadRequest("invalid product body"))
		return
	}

	res, err := h.store.Insert(c.Request.Context(), &p)
	if err != nil {
		_ = c.Error(err)
		return
	}

	created := p
	h.async(c.Request.Context(), func(ctx context.Context) { h.reindex(ctx, created) })
	c.JSON(http.StatusOK, res)
}

// Patch handles PATCH /products/:id.
func (h *Handler) Patch(c *gin.Context) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		_ = c.Error(apperr.BadRequest("invalid product body"))
		return
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		_ = c.Error(apperr.BadRequest("nothing to update"))
		return
	}

	res, err := h.store.Update(c.Request.Context(), id, fields)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if res.MatchedCount > 0 {
		h.async(c.Request.Context(), func(ctx context.Context) { h.reindexByID(ctx, id) })
	}
	c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /products/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if res.DeletedCount > 0 {
		h.async(c.Request.Context(), func(ctx context.Context) {
			if err := h.index.Remove(ctx, id.Hex()); err != nil && !errors.Is(err, services.ErrSearchDisabled) {
				logger.WithCtx(ctx).Warn("remove product from search index", "product_id", id.Hex(), "error", err)
			}
		})
	}
	c.JSON(http.StatusOK, res)
}

// Mine handles GET /myProducts?sellerName=.
func (h *Handler) Mine(c *gin.Context) {
	seller := c.Query("sellerName")
	if seller == "" {
		c.JSON(http.StatusOK, []models.Product{})
		return
	}

	products, err := h.store.BySeller(c.Request.Context(), seller)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Search handles GET /search?q=. The store's regex search answers when the
// index is disabled or failing.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		_ = c.Error(apperr.BadRequest("missing search query"))
		return
	}

	ctx := c.Request.Context()
	products, err := h.index.Search(ctx, q)
	if err == nil {
		c.JSON(http.StatusOK, products)
		return
	}
	if !errors.Is(err, services.ErrSearchDisabled) {
		logger.WithCtx(ctx).Warn("search index failed, falling back to store", "error", err)
	}

	products, err = h.store.Search(ctx, q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// UploadImage handles POST /products/:id/image (multipart field "file").
func (h *Handler) UploadImage(c *gin.Context) {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	header, err := c.FormFile(imageFormField)
	if err != nil {
		_ = c.Error(apperr.BadRequest("missing image file"))
		return
	}
	if header.Size > maxImageSize {
		_ = c.Error(apperr.BadRequest("image too large"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		_ = c.Error(apperr.BadRequest("file is not an image"))
		return
	}

	ctx := c.Request.Context()
	existing, err := h.store.ByID(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(existing) == 0 {
		_ = c.Error(&apperr.Error{Kind: apperr.ErrNotFound, Message: "product not found"})
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(apperr.BadRequest("unreadable image file"))
		return
	}
	defer file.Close()

	url, err := h.images.Upload(ctx, id.Hex(), header.Filename, file, header.Size, contentType)
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.store.Update(ctx, id, map[string]any{"image": url})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.async(ctx, func(ctx context.Context) { h.reindexByID(ctx, id) })
	c.JSON(http.StatusOK, gin.H{"image": url, "updateResult": res})
}

func (h *Handler) reindex(ctx context.Context, p models.Product) {
	if err := h.index.Index(ctx, p); err != nil && !errors.Is(err, services.ErrSearchDisabled) {
		logger.WithCtx(ctx).Warn("index product", "product_id", p.ID.Hex(), "error", err)
	}
}

func (h *Handler) reindexByID(ctx context.Context, id primitive.ObjectID) {
	products, err := h.store.ByID(ctx, id)
	if err != nil {
		logger.WithCtx(ctx).Warn("load product for reindex", "product_id", id.Hex(), "error", err)
		return
	}
	for _, p := range products {
		h.reindex(ctx, p)
	}
}
