package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/wneessen/go-mail"
)

type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.SMTPPort)}

	// Mailpit on 1025: no auth, no TLS
	if cfg.SMTPUseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if user := strings.TrimSpace(cfg.SMTPUser); user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(strings.TrimSpace(cfg.SMTPPass)),
		)
	}

	c, err := mail.NewClient(strings.TrimSpace(cfg.SMTPHost), opts...)
	if err != nil {
		return nil, fmt.Errorf("could not initialize smtp client: %w", err)
	}
	return &SMTPMailer{
		client:   c,
		from:     strings.TrimSpace(cfg.SMTPFrom),
		fromName: cfg.SMTPFromName,
	}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, in *Message) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return "", fmt.Errorf("set from address: %w", err)
	}
	if err := msg.AddToFormat(in.ToName, strings.TrimSpace(in.To)); err != nil {
		return "", fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(in.Subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, in.Text)
	if in.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, in.HTML)
	}
	for _, a := range in.Attachments {
		opt := mail.WithFileContentType(mail.ContentType(a.ContentType))
		var err error
		if a.Inline {
			err = msg.EmbedReader(a.Filename, bytes.NewReader(a.Data), opt)
		} else {
			err = msg.AttachReader(a.Filename, bytes.NewReader(a.Data), opt)
		}
		if err != nil {
			return "", fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return msg.GetMessageID(), nil
}
