package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo/memory"
	"github.com/diagnosis/condo-bookings/pkg/auth"
)

func newAuth(t *testing.T) (AuthService, *auth.Issuer) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret", "condo-bookings", "condo-api", time.Hour)
	return NewAuthService(memory.NewStore(), issuer, cheapHash, nil), issuer
}

func TestRegisterAndLogin(t *testing.T) {
	svc, issuer := newAuth(t)
	ctx := context.Background()

	u, err := svc.RegisterOwner(ctx, Registration{
		Username: "Olivia", Email: "Olivia@Example.com", Password: "correct-horse", FullName: "Olivia Owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "olivia", u.Username)
	assert.Equal(t, "olivia@example.com", u.Email)
	assert.Equal(t, []domain.Role{domain.RoleOwner}, u.Roles)

	for _, login := range []string{"olivia", "olivia@example.com"} {
		s, err := svc.Login(ctx, login, "correct-horse")
		require.NoError(t, err, login)
		claims, err := issuer.Parse(s.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.Sub)
		assert.Equal(t, []string{"OWNER"}, claims.Roles)
	}

	_, err = svc.Login(ctx, "olivia", "wrong-password")
	assert.Equal(t, domain.CodeInvalidCredential, domain.CodeOf(err))
	_, err = svc.Login(ctx, "nobody", "correct-horse")
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestRegister_Conflicts(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.RegisterGuest(ctx, Registration{Username: "ana", Email: "ana@example.com", Password: "password1", FullName: "Ana"})
	require.NoError(t, err)

	_, err = svc.RegisterGuest(ctx, Registration{Username: "ANA", Email: "other@example.com", Password: "password1", FullName: "Ana"})
	assert.Equal(t, domain.CodeUsernameTaken, domain.CodeOf(err))

	_, err = svc.RegisterOwner(ctx, Registration{Username: "ana2", Email: "ana@example.com", Password: "password1", FullName: "Ana"})
	assert.Equal(t, domain.CodeEmailTaken, domain.CodeOf(err))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAuth(t)
	cases := []Registration{
		{Username: "x", Email: "a@example.com", Password: "password1", FullName: "A"},
		{Username: "valid", Email: "bad", Password: "password1", FullName: "A"},
		{Username: "valid", Email: "a@example.com", Password: "short", FullName: "A"},
		{Username: "valid", Email: "a@example.com", Password: "password1", FullName: " "},
		{Username: "valid", Email: "a@example.com", Password: "password1", FullName: "A", Phone: "12"},
	}
	for _, in := range cases {
		_, err := svc.RegisterGuest(context.Background(), in)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "%+v", in)
	}
}
