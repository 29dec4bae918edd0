// Package repo declares the persistence ports used by the services.
// Lookups return (nil, nil) when the row does not exist.
package repo

import (
	"context"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
)

type CondoRepo interface {
	Create(ctx context.Context, c *domain.Condo) (*domain.Condo, error)
	SetBookingLink(ctx context.Context, id int64, link string) error
	GetByID(ctx context.Context, id int64) (*domain.Condo, error)
	GetByFrontDesk(ctx context.Context, frontDeskID int64) (*domain.Condo, error)
	ExistsByNameLocation(ctx context.Context, name, location string) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Condo, error)
	Update(ctx context.Context, c *domain.Condo) error
	SetStatus(ctx context.Context, id int64, status domain.CondoStatus, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type BookingRepo interface {
	Create(ctx context.Context, in *domain.NewBooking, now time.Time) (*domain.Booking, error)
	// ListActiveOverlapping returns non-Rejected, non-Cancelled bookings on the
	// condo whose range overlaps [start, end).
	ListActiveOverlapping(ctx context.Context, condoID int64, start, end time.Time) ([]domain.Booking, error)
	// GetForOwner finds a booking only when its condo is owned by ownerID, and
	// locks it for the rest of the transaction.
	GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Booking, error)
	// GetForFrontDesk finds a booking only when its condo is staffed by frontDeskID.
	GetForFrontDesk(ctx context.Context, id, frontDeskID int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, b *domain.Booking) error
	ListByOwner(ctx context.Context, ownerID int64, status *domain.BookingStatus) ([]domain.Booking, error)
	ListByFrontDesk(ctx context.Context, frontDeskID int64) ([]domain.Booking, error)
	ListByCondo(ctx context.Context, condoID int64) ([]domain.Booking, error)
	ListStalePending(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Booking, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Condos   CondoRepo
	Bookings BookingRepo
	Users    UserRepo
}

// Store hands out repositories. Within runs fn in one serializable
// transaction; fn may be invoked again when the transaction must be retried.
type Store interface {
	Repos() Repos
	Within(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
