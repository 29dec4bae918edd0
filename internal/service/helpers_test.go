package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/notify"
	"github.com/diagnosis/condo-bookings/internal/repo/memory"
	"github.com/diagnosis/condo-bookings/pkg/config"
)

// ---------- Mocks ----------

type mockNotifier struct {
	mu   sync.Mutex
	jobs []notify.Job
}

func (n *mockNotifier) Enqueue(_ context.Context, job notify.Job) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
	return true
}

func (n *mockNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, len(n.jobs))
	for i, j := range n.jobs {
		out[i] = j.Kind
	}
	return out
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *mockPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ---------- Fixtures ----------

var cheapHash = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

var bookingCfg = config.BookingConfig{
	PublicBaseURL:        "https://condos.example.com",
	FrontDeskEmailDomain: "desk.example.com",
	MaxPaymentImageBytes: 5_000_000,
}

func at(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, time.UTC)
}

type env struct {
	store    *memory.Store
	notifier *mockNotifier
	events   *mockPublisher
	clock    *fakeClock
	bookings BookingService
	condos   CondoService
	queries  QueryService

	owner domain.Principal
	desk  domain.Principal
	condo *domain.Condo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    memory.NewStore(),
		notifier: &mockNotifier{},
		events:   &mockPublisher{},
		clock:    &fakeClock{now: at(1, 9)},
	}
	e.bookings = NewBookingService(e.store, e.notifier, bookingCfg, e.clock.Now)
	e.condos = NewCondoService(e.store, e.events, bookingCfg, cheapHash, e.clock.Now)
	e.queries = NewQueryService(e.store, e.clock.Now)

	owner, err := e.store.Repos().Users.Create(context.Background(), &domain.User{
		Username: "owner", Email: "owner@example.com", FullName: "Olivia Owner",
		Roles: []domain.Role{domain.RoleOwner},
	})
	require.NoError(t, err)
	e.owner = domain.Principal{UserID: owner.ID, Roles: owner.Roles}

	e.condo = e.createCondo(t, e.owner, "Sea View", "seaview-desk")
	e.desk = domain.Principal{UserID: e.condo.FrontDeskID, Roles: []domain.Role{domain.RoleFrontDesk}}
	return e
}

func (e *env) createCondo(t *testing.T, owner domain.Principal, name, deskUser string) *domain.Condo {
	t.Helper()
	c, err := e.condos.CreateCondo(context.Background(), owner, domain.NewCondo{
		Name:              name,
		Location:          "Cebu",
		MaxGuests:         4,
		PricePerNight:     100,
		FrontDeskUsername: deskUser,
		FrontDeskPassword: "desk-password",
	})
	require.NoError(t, err)
	return c
}

func (e *env) newBooking(start, end time.Time) domain.NewBooking {
	return domain.NewBooking{
		FullName:      "Ana Guest",
		Email:         "ana@example.com",
		ContactNumber: "+63 917 123 4567",
		GuestCount:    2,
		StartDateTime: start,
		EndDateTime:   end,
		CondoID:       e.condo.ID,
	}
}

func (e *env) book(t *testing.T, start, end time.Time) *domain.Booking {
	t.Helper()
	b, err := e.bookings.CreateBooking(context.Background(), e.newBooking(start, end))
	require.NoError(t, err)
	return b
}

func (e *env) approve(t *testing.T, id int64) string {
	t.Helper()
	res, err := e.bookings.ApproveBooking(context.Background(), e.owner, id, domain.Decision{Approve: true})
	require.NoError(t, err)
	return res.QRCodeData
}
