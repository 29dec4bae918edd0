package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/diagnosis/condo-bookings/internal/utils"
	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/events"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

const (
	minPasswordLength   = 8
	compensationTimeout = 5 * time.Second
)

type CondoService interface {
	CreateCondo(ctx context.Context, p domain.Principal, in domain.NewCondo) (*domain.Condo, error)
	UpdateCondo(ctx context.Context, p domain.Principal, id int64, patch domain.CondoPatch) (*domain.Condo, error)
	UpdateCondoStatus(ctx context.Context, p domain.Principal, id int64, status domain.CondoStatus) (*domain.Condo, error)
	DeleteCondo(ctx context.Context, p domain.Principal, id int64) error
	ListOwnerCondos(ctx context.Context, p domain.Principal) ([]domain.Condo, error)
	GetFrontDeskCondo(ctx context.Context, p domain.Principal) (*domain.Condo, error)
	GetPublicCondo(ctx context.Context, id int64) (*domain.PublicCondoView, error)
}

type condoService struct {
	store      repo.Store
	eventBus   events.Publisher
	cfg        config.BookingConfig
	hashParams *argon2id.Params
	now        Clock
}

// NewCondoService builds the lifecycle manager. params may be nil to use
// argon2id.DefaultParams.
func NewCondoService(store repo.Store, eventBus events.Publisher, cfg config.BookingConfig, params *argon2id.Params, clock Clock) CondoService {
	if eventBus == nil {
		eventBus = events.NopPublisher{}
	}
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &condoService{store: store, eventBus: eventBus, cfg: cfg, hashParams: params, now: clockOrDefault(clock)}
}

func duplicateCondo(name, location string) error {
	return domain.Conflict(domain.CodeDuplicateCondo, "a condo named %q already exists in %q", name, location)
}

func usernameTaken(username string) error {
	return domain.Conflict(domain.CodeUsernameTaken, "front desk username %q is already taken", username)
}

func newUniqueCode() string {
	return "CND-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateCondo provisions the front-desk account and then the condo. When the
// condo cannot be written the account is removed again.
func (s *condoService) CreateCondo(ctx context.Context, p domain.Principal, in domain.NewCondo) (*domain.Condo, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	in, err := validateNewCondo(in)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	exists, err := repos.Condos.ExistsByNameLocation(ctx, in.Name, in.Location)
	if err != nil {
		return nil, fmt.Errorf("check condo name: %w", err)
	}
	if exists {
		return nil, duplicateCondo(in.Name, in.Location)
	}
	taken, err := repos.Users.UsernameExists(ctx, in.FrontDeskUsername)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, usernameTaken(in.FrontDeskUsername)
	}

	hash, err := argon2id.CreateHash(in.FrontDeskPassword, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("hash front desk password: %w", err)
	}

	// step 1: front-desk account
	var desk *domain.User
	err = s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		u, err := r.Users.Create(ctx, &domain.User{
			Username:     in.FrontDeskUsername,
			Email:        in.FrontDeskUsername + "@" + s.cfg.FrontDeskEmailDomain,
			PasswordHash: hash,
			FullName:     in.FrontDeskFullName,
			Roles:        []domain.Role{domain.RoleFrontDesk},
			CreatedAt:    s.now(),
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return usernameTaken(in.FrontDeskUsername)
		}
		if err != nil {
			return fmt.Errorf("create front desk user: %w", err)
		}
		desk = u
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "create condo")
	}

	// step 2: condo and its booking link
	var created *domain.Condo
	err = s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		exists, err := r.Condos.ExistsByNameLocation(ctx, in.Name, in.Location)
		if err != nil {
			return fmt.Errorf("check condo name: %w", err)
		}
		if exists {
			return duplicateCondo(in.Name, in.Location)
		}

		now := s.now()
		c, err := r.Condos.Create(ctx, &domain.Condo{
			Name:          in.Name,
			Location:      in.Location,
			Description:   in.Description,
			Amenities:     in.Amenities,
			MaxGuests:     in.MaxGuests,
			PricePerNight: in.PricePerNight,
			ImageURL:      in.ImageURL,
			UniqueCode:    newUniqueCode(),
			Status:        domain.CondoAvailable,
			CreatedAt:     now,
			LastUpdated:   now,
			OwnerID:       p.UserID,
			FrontDeskID:   desk.ID,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return duplicateCondo(in.Name, in.Location)
		}
		if err != nil {
			return fmt.Errorf("insert condo: %w", err)
		}

		link := fmt.Sprintf("%s/book/%d", s.cfg.PublicBaseURL, c.ID)
		if err := r.Condos.SetBookingLink(ctx, c.ID, link); err != nil {
			return fmt.Errorf("set booking link: %w", err)
		}
		c.BookingLink = link
		created = c
		return nil
	})
	if err != nil {
		s.compensate(ctx, desk.ID)
		return nil, passThrough(err, "create condo")
	}

	logger.InfoContext(ctx, "Condo created",
		"condo_id", created.ID, "owner_id", created.OwnerID, "front_desk_id", created.FrontDeskID)
	s.publish(ctx, events.CondoCreated, created, nil)
	return created, nil
}

// compensate removes a front-desk account whose condo was never written.
// It runs even when the request context is already cancelled.
func (s *condoService) compensate(ctx context.Context, deskID int64) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.store.Repos().Users.Delete(cctx, deskID); err != nil {
		logger.ErrorContext(ctx, "Failed to remove orphaned front desk account",
			"error", err, "user_id", deskID)
		return
	}
	logger.WarnContext(ctx, "Removed front desk account after failed condo creation", "user_id", deskID)
}

func validateNewCondo(in domain.NewCondo) (domain.NewCondo, error) {
	in.Name = utils.CollapseSpaces(in.Name)
	in.Location = utils.CollapseSpaces(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	in.Amenities = strings.TrimSpace(in.Amenities)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.FrontDeskUsername = utils.NormalizeUsername(in.FrontDeskUsername)
	in.FrontDeskFullName = utils.CollapseSpaces(in.FrontDeskFullName)

	switch {
	case in.Name == "":
		return in, domain.Validation("name is required")
	case in.Location == "":
		return in, domain.Validation("location is required")
	case in.MaxGuests < 1:
		return in, domain.Validation("max guests must be at least 1")
	case in.PricePerNight < 0:
		return in, domain.Validation("price per night cannot be negative")
	case !utils.IsValidUsername(in.FrontDeskUsername):
		return in, domain.Validation("front desk username must be 3-50 letters, digits, dots, dashes or underscores")
	case len(in.FrontDeskPassword) < minPasswordLength:
		return in, domain.Validation("front desk password must be at least %d characters", minPasswordLength)
	}
	if in.FrontDeskFullName == "" {
		in.FrontDeskFullName = in.Name + " Front Desk"
	}
	return in, nil
}

// loadOwned returns the condo only if p owns it; anything else reads as missing.
func loadOwned(ctx context.Context, r repo.Repos, p domain.Principal, id int64) (*domain.Condo, error) {
	c, err := r.Condos.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load condo: %w", err)
	}
	if !p.IsOwnerOf(c) {
		return nil, domain.NotFound("condo %d not found", id)
	}
	return c, nil
}

func (s *condoService) UpdateCondo(ctx context.Context, p domain.Principal, id int64, patch domain.CondoPatch) (*domain.Condo, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}

	var (
		updated *domain.Condo
		changed []string
	)
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		c, err := loadOwned(ctx, r, p, id)
		if err != nil {
			return err
		}
		changed = patch.Apply(c)
		if len(changed) == 0 {
			updated = c
			return nil
		}
		c.LastUpdated = s.now()
		if err := r.Condos.Update(ctx, c); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return duplicateCondo(c.Name, c.Location)
			}
			return fmt.Errorf("update condo: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "update condo")
	}

	if len(changed) > 0 {
		logger.InfoContext(ctx, "Condo updated", "condo_id", id, "fields", changed)
		s.publish(ctx, events.CondoUpdated, updated, changed)
	}
	return updated, nil
}

func (s *condoService) UpdateCondoStatus(ctx context.Context, p domain.Principal, id int64, status domain.CondoStatus) (*domain.Condo, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	if !status.OwnerSettable() {
		return nil, domain.Validation("status must be one of Available, Maintenance, Unavailable")
	}

	var updated *domain.Condo
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		c, err := loadOwned(ctx, r, p, id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := r.Condos.SetStatus(ctx, c.ID, status, now); err != nil {
			return fmt.Errorf("set condo status: %w", err)
		}
		c.Status = status
		c.LastUpdated = now
		updated = c
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "update condo status")
	}

	logger.InfoContext(ctx, "Condo status changed", "condo_id", id, "status", status)
	s.publish(ctx, events.CondoStatusChanged, updated, nil)
	return updated, nil
}

// DeleteCondo removes the condo, its bookings and its front-desk account in
// one transaction. The owner account is never touched.
func (s *condoService) DeleteCondo(ctx context.Context, p domain.Principal, id int64) error {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return err
	}

	var deleted *domain.Condo
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		c, err := loadOwned(ctx, r, p, id)
		if err != nil {
			return err
		}
		if err := r.Condos.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete condo: %w", err)
		}
		// the condo row references the account, so it goes second
		if err := r.Users.Delete(ctx, c.FrontDeskID); err != nil {
			return fmt.Errorf("delete front desk account: %w", err)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return passThrough(err, "delete condo")
	}

	logger.InfoContext(ctx, "Condo deleted", "condo_id", id, "front_desk_id", deleted.FrontDeskID)
	s.publish(ctx, events.CondoDeleted, deleted, nil)
	return nil
}

func (s *condoService) ListOwnerCondos(ctx context.Context, p domain.Principal) ([]domain.Condo, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	condos, err := s.store.Repos().Condos.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list owner condos: %w", err)
	}
	return condos, nil
}

func (s *condoService) GetFrontDeskCondo(ctx context.Context, p domain.Principal) (*domain.Condo, error) {
	if err := requireRole(p, domain.RoleFrontDesk); err != nil {
		return nil, err
	}
	c, err := s.store.Repos().Condos.GetByFrontDesk(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load front desk condo: %w", err)
	}
	if c == nil {
		return nil, domain.NotFound("no condo is assigned to this account")
	}
	return c, nil
}

func (s *condoService) GetPublicCondo(ctx context.Context, id int64) (*domain.PublicCondoView, error) {
	c, err := s.store.Repos().Condos.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load condo: %w", err)
	}
	if c == nil {
		return nil, domain.NotFound("condo %d not found", id)
	}
	view := domain.NewPublicCondoView(c)
	return &view, nil
}

func (s *condoService) publish(ctx context.Context, subject string, c *domain.Condo, changes []string) {
	event := events.CondoEvent{
		CondoID:    c.ID,
		OwnerID:    c.OwnerID,
		Status:     string(c.Status),
		Changes:    changes,
		OccurredAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish condo event", "error", err, "subject", subject, "condo_id", c.ID)
	}
}

var _ CondoService = (*condoService)(nil)
