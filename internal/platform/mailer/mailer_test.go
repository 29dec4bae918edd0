package mailer

import (
	"context"
	"testing"

	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsTransport(t *testing.T) {
	svc, err := New(config.EmailConfig{DevMode: true})
	require.NoError(t, err)
	assert.IsType(t, &DevMailer{}, svc)

	svc, err = New(config.EmailConfig{MailerSendKey: "key", SMTPFrom: "noreply@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &MailerSend{}, svc)

	svc, err = New(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025, SMTPFrom: "noreply@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, svc)
}

func TestNewSMTPMailer_RejectsEmptyHost(t *testing.T) {
	_, err := NewSMTPMailer(config.EmailConfig{SMTPHost: "  ", SMTPPort: 25})
	assert.Error(t, err)
}

func TestDevMailer_Validates(t *testing.T) {
	m := NewDevMailer()

	_, err := m.Send(context.Background(), &Message{Subject: "hi"})
	assert.Error(t, err)

	id, err := m.Send(context.Background(), &Message{
		To: "guest@example.com", Subject: "hi", Text: "hello",
		Attachments: []Attachment{{Filename: "qr.jpeg", Data: []byte{1}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "dev", id)
}
