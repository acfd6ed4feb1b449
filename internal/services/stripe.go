package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"podreseller_back_end/internal/apperr"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is the part of a Stripe event the storefront acts on.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
}

// StripeGateway creates payment intents and verifies webhook payloads.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway sets the process-wide Stripe key.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	slog.Info("stripe initialised")
	return &StripeGateway{webhookSecret: webhookSecret}
}

// CreatePaymentIntent asks Stripe for a card intent and returns its client secret.
func (g *StripeGateway) CreatePaymentIntent(amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return intent.ClientSecret, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the intent id.
// Events rendered for another API version are accepted; only the intent id is read.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if g.webhookSecret == "" {
		return WebhookEvent{}, apperr.Unavailable("webhook secret is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, apperr.BadRequest("invalid signature")
	}

	out := WebhookEvent{Type: string(event.Type)}
	if out.Type != EventPaymentSucceeded && out.Type != EventPaymentFailed {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return WebhookEvent{}, apperr.BadRequest("invalid payment intent payload")
	}
	out.PaymentIntentID = pi.ID
	return out, nil
}
