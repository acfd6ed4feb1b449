package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"podreseller_back_end/internal/config"
	"podreseller_back_end/internal/models"
)

// ReceiptMailer emails a receipt after a checkout is recorded.
type ReceiptMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewReceiptMailer returns nil when no SMTP host is configured.
func NewReceiptMailer(cfg config.Config) *ReceiptMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &ReceiptMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
}

// BuildReceipt renders the receipt message for p.
func (m *ReceiptMailer) BuildReceipt(p models.Payment) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("receipt from: %w", err)
	}
	if err := msg.To(p.Email); err != nil {
		return nil, fmt.Errorf("receipt to: %w", err)
	}
	msg.Subject(receiptSubject)
	msg.SetDate()
	if err := msg.SetBodyHTMLTemplate(receiptTemplate, p); err != nil {
		return nil, fmt.Errorf("receipt body: %w", err)
	}
	return msg, nil
}

func formatDollars(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// SendReceipt delivers the receipt; a nil mailer is a no-op.
func (m *ReceiptMailer) SendReceipt(ctx context.Context, p models.Payment) error {
	if m == nil {
		return nil
	}

	msg, err := m.BuildReceipt(p)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(15 * time.Second),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send receipt to %s: %w", p.Email, err)
	}
	return nil
}
