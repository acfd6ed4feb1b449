package utils

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreseller_back_end/internal/config"
	"podreseller_back_end/internal/models"
)

func TestNewReceiptMailerDisabledWithoutHost(t *testing.T) {
	m := NewReceiptMailer(config.Config{})
	assert.Nil(t, m)
	assert.NoError(t, m.SendReceipt(context.Background(), models.Payment{Email: "a@b.c"}))
}

func TestBuildReceipt(t *testing.T) {
	m := NewReceiptMailer(config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "noreply@podreseller.com"})
	require.NotNil(t, m)

	msg, err := m.BuildReceipt(models.Payment{
		Email:         "buyer@example.com",
		Amount:        24.5,
		CartIDs:       []string{"a", "b"},
		TransactionID: "pi_123",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "buyer@example.com")
	assert.Contains(t, out, "Subject: Your PodReseller order receipt")
}

func TestBuildReceiptRejectsBadAddress(t *testing.T) {
	m := NewReceiptMailer(config.Config{SMTPHost: "smtp.example.com", SMTPFrom: "noreply@podreseller.com"})

	_, err := m.BuildReceipt(models.Payment{Email: "not an address"})
	assert.Error(t, err)
}
