package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store) (owner, desk *domain.User, condo *domain.Condo) {
	t.Helper()
	ctx := context.Background()
	r := s.Repos()

	owner, err := r.Users.Create(ctx, &domain.User{Username: "owner", Email: "owner@example.com", Roles: []domain.Role{domain.RoleOwner}})
	require.NoError(t, err)
	desk, err = r.Users.Create(ctx, &domain.User{Username: "desk", Email: "desk@example.com", Roles: []domain.Role{domain.RoleFrontDesk}})
	require.NoError(t, err)
	condo, err = r.Condos.Create(ctx, &domain.Condo{
		Name: "Sea View", Location: "Cebu", MaxGuests: 4, PricePerNight: 100,
		UniqueCode: "C-1", Status: domain.CondoAvailable, OwnerID: owner.ID, FrontDeskID: desk.ID,
	})
	require.NoError(t, err)
	return owner, desk, condo
}

func jan(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, time.UTC)
}

func TestWithin_RollsBackOnError(t *testing.T) {
	s := NewStore()
	_, _, condo := seed(t, s)
	boom := errors.New("boom")

	err := s.Within(context.Background(), func(ctx context.Context, r repo.Repos) error {
		_, err := r.Bookings.Create(ctx, &domain.NewBooking{
			FullName: "A", CondoID: condo.ID, GuestCount: 1,
			StartDateTime: jan(10, 14), EndDateTime: jan(12, 11),
		}, jan(1, 0))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Repos().Bookings.ListByCondo(context.Background(), condo.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBookingCreate_EnforcesExclusion(t *testing.T) {
	s := NewStore()
	_, _, condo := seed(t, s)
	ctx := context.Background()
	bookings := s.Repos().Bookings

	_, err := bookings.Create(ctx, &domain.NewBooking{CondoID: condo.ID, StartDateTime: jan(10, 14), EndDateTime: jan(12, 11)}, jan(1, 0))
	require.NoError(t, err)

	_, err = bookings.Create(ctx, &domain.NewBooking{CondoID: condo.ID, StartDateTime: jan(11, 9), EndDateTime: jan(13, 9)}, jan(1, 0))
	assert.ErrorIs(t, err, domain.ErrOverlap)

	_, err = bookings.Create(ctx, &domain.NewBooking{CondoID: condo.ID, StartDateTime: jan(12, 11), EndDateTime: jan(14, 11)}, jan(1, 0))
	assert.NoError(t, err)
}

func TestScopedLookups(t *testing.T) {
	s := NewStore()
	owner, desk, condo := seed(t, s)
	ctx := context.Background()
	r := s.Repos()

	b, err := r.Bookings.Create(ctx, &domain.NewBooking{CondoID: condo.ID, StartDateTime: jan(10, 14), EndDateTime: jan(12, 11)}, jan(1, 0))
	require.NoError(t, err)

	got, err := r.Bookings.GetForOwner(ctx, b.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = r.Bookings.GetForOwner(ctx, b.ID, desk.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = r.Bookings.GetForFrontDesk(ctx, b.ID, desk.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDeletes(t *testing.T) {
	s := NewStore()
	owner, desk, condo := seed(t, s)
	ctx := context.Background()
	r := s.Repos()

	_, err := r.Bookings.Create(ctx, &domain.NewBooking{CondoID: condo.ID, StartDateTime: jan(10, 14), EndDateTime: jan(12, 11)}, jan(1, 0))
	require.NoError(t, err)

	assert.Error(t, r.Users.Delete(ctx, owner.ID), "owner referenced by condo")

	require.NoError(t, r.Condos.Delete(ctx, condo.ID))
	left, err := r.Bookings.ListByCondo(ctx, condo.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	require.NoError(t, r.Users.Delete(ctx, desk.ID))
	u, err := r.Users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestFailNext(t *testing.T) {
	s := NewStore()
	boom := errors.New("injected")
	s.FailNext("users.create", boom)

	_, err := s.Repos().Users.Create(context.Background(), &domain.User{Username: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, boom)

	_, err = s.Repos().Users.Create(context.Background(), &domain.User{Username: "x", Email: "x@example.com"})
	assert.NoError(t, err)
}

func TestUserUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	users := s.Repos().Users

	_, err := users.Create(ctx, &domain.User{Username: "Desk1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = users.Create(ctx, &domain.User{Username: "desk1", Email: "b@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	exists, err := users.UsernameExists(ctx, "DESK1")
	require.NoError(t, err)
	assert.True(t, exists)

	u, err := users.GetByLogin(ctx, "A@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Desk1", u.Username)
}
