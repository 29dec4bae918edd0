package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 5_000_000, cfg.Booking.MaxPaymentImageBytes)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Positive(t, cfg.Notify.Workers)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("PUBLIC_BASE_URL", "https://condos.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SMTP_USE_TLS", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "https://condos.example.com", cfg.Booking.PublicBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Email.SMTPUseTLS)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 2, cfg.Notify.Workers)
}
