package payment

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/metrics"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/services"
)

const (
	currency       = "usd"
	receiptTimeout = 30 * time.Second
	maxWebhookBody = 64 << 10
)

type Store interface {
	ByEmail(ctx context.Context, email string) ([]models.Payment, error)
	Checkout(ctx context.Context, p *models.Payment) (models.CheckoutResult, error)
	SetStatusByTransaction(ctx context.Context, transactionID, status string) (models.UpdateResult, error)
}

type Gateway interface {
	CreatePaymentIntent(amount int64, currency string) (string, error)
	ParseWebhook(payload []byte, signature string) (services.WebhookEvent, error)
}

type Mailer interface {
	SendReceipt(ctx context.Context, p models.Payment) error
}

// CartPublisher announces that a shopper's cart was emptied by checkout.
type CartPublisher interface {
	Publish(ctx context.Context, email, event string) error
}

type Handler struct {
	store   Store
	gateway Gateway
	mailer  Mailer
	carts   CartPublisher
	metrics *metrics.Metrics

	async func(ctx context.Context, task func(context.Context))
}

// NewHandler accepts a nil mailer, cart publisher and metrics.
func NewHandler(store Store, gateway Gateway, mailer Mailer, carts CartPublisher, m *metrics.Metrics) *Handler {
	return &Handler{store: store, gateway: gateway, mailer: mailer, carts: carts, metrics: m, async: background}
}

func background(ctx context.Context, task func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
		defer cancel()
		task(ctx)
	}()
}

type intentRequest struct {
	Price float64 `json:"price"`
}

// ToMinorUnits converts a dollar price to cents.
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CreateIntent handles POST /create-payment-intent.
func (h *Handler) CreateIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.BadRequest("invalid payment body"))
		return
	}
	amount := ToMinorUnits(req.Price)
	if amount <= 0 {
		_ = c.Error(apperr.BadRequest("price must be positive"))
		return
	}

	secret, err := h.gateway.CreatePaymentIntent(amount, currency)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": secret})
}

// Record handles POST /payments: stores the payment and removes the paid cart
// items. Status is only ever set by the Stripe webhook.
func (h *Handler) Record(c *gin.Context) {
	var p models.Payment
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(apperr.BadRequest("invalid payment body"))
		return
	}
	p.Status = ""

	ctx := c.Request.Context()
	res, err := h.store.Checkout(ctx, &p)
	if err != nil {
		h.metrics.ObserveCheckout(metrics.CheckoutFailed)
		_ = c.Error(err)
		return
	}

	log := logger.WithCtx(ctx)
	if res.CleanupPending {
		h.metrics.ObserveCheckout(metrics.CheckoutDeferred)
		log.Warn("payment recorded, cart cleanup pending", "payment_id", p.ID.Hex(), "email", p.Email)
	} else {
		h.metrics.ObserveCheckout(metrics.CheckoutOK)
		log.Info("payment recorded", "payment_id", p.ID.Hex(), "email", p.Email, "amount", p.Amount)
		if h.carts != nil && p.Email != "" {
			if err := h.carts.Publish(ctx, p.Email, services.CartCleared); err != nil {
				log.Warn("publish cart event", "email", p.Email, "error", err)
			}
		}
	}

	if h.mailer != nil {
		paid := p
		h.async(ctx, func(ctx context.Context) {
			if err := h.mailer.SendReceipt(ctx, paid); err != nil {
				logger.WithCtx(ctx).Warn("send receipt", "payment_id", paid.ID.Hex(), "error", err)
			}
		})
	}
	c.JSON(http.StatusOK, res)
}

// ListByEmail handles GET /payments/:email.
func (h *Handler) ListByEmail(c *gin.Context) {
	payments, err := h.store.ByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// Webhook handles POST /webhooks/stripe.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		_ = c.Error(apperr.BadRequest("unreadable webhook body"))
		return
	}
	if len(payload) > maxWebhookBody {
		_ = c.Error(apperr.TooLarge("webhook body too large"))
		return
	}

	event, err := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.metrics.ObserveWebhook(event.Type)

	var status string
	switch event.Type {
	case services.EventPaymentSucceeded:
		status = models.PaymentSucceeded
	case services.EventPaymentFailed:
		status = models.PaymentFailed
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if event.PaymentIntentID == "" {
		_ = c.Error(apperr.BadRequest("event has no payment intent"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.store.SetStatusByTransaction(ctx, event.PaymentIntentID, status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if res.MatchedCount == 0 {
		logger.WithCtx(ctx).Warn("webhook for unknown payment", "payment_intent", event.PaymentIntentID, "type", event.Type)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
