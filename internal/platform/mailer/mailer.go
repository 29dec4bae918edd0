package mailer

import (
	"context"
	"fmt"

	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	// Inline attachments are referenced from the HTML body as cid:Filename.
	Inline bool
}

type Message struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

func (m *Message) validate() error {
	if m.To == "" {
		return fmt.Errorf("empty recipient email")
	}
	if m.Subject == "" {
		return fmt.Errorf("empty subject")
	}
	return nil
}

// Service delivers a message and returns the provider's message id, if any.
type Service interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// New picks a transport: the log-only dev mailer in dev mode, MailerSend when
// an API key is configured, SMTP otherwise.
func New(cfg config.EmailConfig) (Service, error) {
	switch {
	case cfg.DevMode:
		return NewDevMailer(), nil
	case cfg.MailerSendKey != "":
		return NewMailerSend(cfg.MailerSendKey, cfg.SMTPFromName, cfg.SMTPFrom), nil
	default:
		return NewSMTPMailer(cfg)
	}
}

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, msg *Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	logger.InfoContext(ctx, "[DEV MAIL] email not sent",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
		"attachments", names,
	)
	return "dev", nil
}
