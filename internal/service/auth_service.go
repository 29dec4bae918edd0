package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/diagnosis/condo-bookings/internal/utils"
	"github.com/diagnosis/condo-bookings/pkg/auth"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

type Registration struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

type AuthService interface {
	RegisterOwner(ctx context.Context, in Registration) (*domain.User, error)
	RegisterGuest(ctx context.Context, in Registration) (*domain.User, error)
	Login(ctx context.Context, login, password string) (*Session, error)
}

type authService struct {
	store      repo.Store
	issuer     *auth.Issuer
	hashParams *argon2id.Params
	now        Clock
	// compared against when the login is unknown so both paths cost the same
	decoyHash string
}

func NewAuthService(store repo.Store, issuer *auth.Issuer, params *argon2id.Params, clock Clock) AuthService {
	if params == nil {
		params = argon2id.DefaultParams
	}
	decoy, _ := argon2id.CreateHash("decoy-password", params)
	return &authService{store: store, issuer: issuer, hashParams: params, now: clockOrDefault(clock), decoyHash: decoy}
}

func (s *authService) RegisterOwner(ctx context.Context, in Registration) (*domain.User, error) {
	return s.register(ctx, in, domain.RoleOwner)
}

func (s *authService) RegisterGuest(ctx context.Context, in Registration) (*domain.User, error) {
	return s.register(ctx, in, domain.RoleGuest)
}

func (s *authService) register(ctx context.Context, in Registration, role domain.Role) (*domain.User, error) {
	in.Username = utils.NormalizeUsername(in.Username)
	in.Email = utils.NormalizeEmail(in.Email)
	in.FullName = utils.CollapseSpaces(in.FullName)
	in.Phone = utils.NormalizePhone(in.Phone)

	switch {
	case !utils.IsValidUsername(in.Username):
		return nil, domain.Validation("username must be 3-50 letters, digits, dots, dashes or underscores")
	case !utils.IsValidEmail(in.Email):
		return nil, domain.Validation("a valid email is required")
	case len(in.Password) < minPasswordLength:
		return nil, domain.Validation("password must be at least %d characters", minPasswordLength)
	case in.FullName == "":
		return nil, domain.Validation("full name is required")
	case in.Phone != "" && !utils.IsValidPhone(in.Phone):
		return nil, domain.Validation("phone number is invalid")
	}

	hash, err := argon2id.CreateHash(in.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *domain.User
	err = s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		taken, err := r.Users.UsernameExists(ctx, in.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return domain.Conflict(domain.CodeUsernameTaken, "username %q is already taken", in.Username)
		}
		existing, err := r.Users.GetByLogin(ctx, in.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return domain.Conflict(domain.CodeEmailTaken, "an account with this email already exists")
		}

		u, err := r.Users.Create(ctx, &domain.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			FullName:     in.FullName,
			Phone:        in.Phone,
			Roles:        []domain.Role{role},
			CreatedAt:    s.now(),
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.Conflict(domain.CodeUsernameTaken, "username or email is already registered")
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "register")
	}

	logger.InfoContext(ctx, "Account registered", "user_id", created.ID, "role", role)
	return created, nil
}

func invalidCredentials() error {
	return domain.Unauthorized(domain.CodeInvalidCredential, "invalid username or password")
}

// Login accepts a username or an email address.
func (s *authService) Login(ctx context.Context, login, password string) (*Session, error) {
	if login == "" || password == "" {
		return nil, invalidCredentials()
	}

	u, err := s.store.Repos().Users.GetByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		_, _ = argon2id.ComparePasswordAndHash(password, s.decoyHash)
		return nil, invalidCredentials()
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		logger.WarnContext(ctx, "Failed login attempt", "user_id", u.ID)
		return nil, invalidCredentials()
	}

	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	token, exp, err := s.issuer.NewAccessToken(u.ID, u.Email, u.Username, roles)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	logger.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return &Session{Token: token, ExpiresAt: exp, User: *u}, nil
}

var _ AuthService = (*authService)(nil)
