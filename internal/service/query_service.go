package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
)

const recentBookingsLimit = 5

// QueryService serves the role-scoped read models. Every listing is filtered
// by the caller's ownership or front-desk assignment inside the query.
type QueryService interface {
	OwnerBookings(ctx context.Context, p domain.Principal, status *domain.BookingStatus) ([]domain.OwnerBookingView, error)
	FrontDeskBookings(ctx context.Context, p domain.Principal) ([]domain.FrontDeskBookingView, error)
	OwnerDashboard(ctx context.Context, p domain.Principal) (*domain.OwnerDashboard, error)
	OwnerStats(ctx context.Context, p domain.Principal) (*domain.OwnerStats, error)
	FrontDeskDashboard(ctx context.Context, p domain.Principal) (*domain.FrontDeskDashboard, error)
	Availability(ctx context.Context, condoID int64, start, end time.Time) (*domain.Availability, error)
}

type queryService struct {
	store repo.Store
	now   Clock
}

func NewQueryService(store repo.Store, clock Clock) QueryService {
	return &queryService{store: store, now: clockOrDefault(clock)}
}

// ownerData loads the owner's condos and bookings concurrently.
func (s *queryService) ownerData(ctx context.Context, ownerID int64, status *domain.BookingStatus) ([]domain.Condo, []domain.Booking, error) {
	repos := s.store.Repos()
	var (
		condos   []domain.Condo
		bookings []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		condos, err = repos.Condos.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("list condos: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bookings, err = repos.Bookings.ListByOwner(gctx, ownerID, status)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return condos, bookings, nil
}

func ownerViews(condos []domain.Condo, bookings []domain.Booking) []domain.OwnerBookingView {
	byID := make(map[int64]*domain.Condo, len(condos))
	for i := range condos {
		byID[condos[i].ID] = &condos[i]
	}
	views := make([]domain.OwnerBookingView, 0, len(bookings))
	for i := range bookings {
		c, ok := byID[bookings[i].CondoID]
		if !ok {
			continue
		}
		views = append(views, domain.NewOwnerBookingView(&bookings[i], c))
	}
	return views
}

func (s *queryService) OwnerBookings(ctx context.Context, p domain.Principal, status *domain.BookingStatus) ([]domain.OwnerBookingView, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	condos, bookings, err := s.ownerData(ctx, p.UserID, status)
	if err != nil {
		return nil, fmt.Errorf("owner bookings: %w", err)
	}
	return ownerViews(condos, bookings), nil
}

func (s *queryService) FrontDeskBookings(ctx context.Context, p domain.Principal) ([]domain.FrontDeskBookingView, error) {
	if err := requireRole(p, domain.RoleFrontDesk); err != nil {
		return nil, err
	}
	bookings, err := s.store.Repos().Bookings.ListByFrontDesk(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("front desk bookings: %w", err)
	}
	return deskViews(bookings), nil
}

func deskViews(bookings []domain.Booking) []domain.FrontDeskBookingView {
	views := make([]domain.FrontDeskBookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, domain.NewFrontDeskBookingView(&bookings[i]))
	}
	return views
}

func (s *queryService) OwnerDashboard(ctx context.Context, p domain.Principal) (*domain.OwnerDashboard, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	condos, bookings, err := s.ownerData(ctx, p.UserID, nil)
	if err != nil {
		return nil, fmt.Errorf("owner dashboard: %w", err)
	}

	d := &domain.OwnerDashboard{
		TotalCondos:    len(condos),
		TotalBookings:  len(bookings),
		OccupancyRate:  domain.OccupancyRate(condos),
		CondosByStatus: make(map[domain.CondoStatus]int),
	}
	price := make(map[int64]float64, len(condos))
	for _, c := range condos {
		d.CondosByStatus[c.Status]++
		price[c.ID] = c.PricePerNight
	}
	for _, b := range bookings {
		switch b.Status {
		case domain.BookingPendingApproval:
			d.PendingBookings++
		case domain.BookingApproved, domain.BookingCheckedIn:
			d.ActiveBookings++
		case domain.BookingCheckedOut:
			d.TotalRevenue += float64(domain.WholeDays(b.StartDateTime, b.EndDateTime)) * price[b.CondoID]
		}
	}

	recent := ownerViews(condos, bookings)
	if len(recent) > recentBookingsLimit {
		recent = recent[:recentBookingsLimit]
	}
	d.RecentBookings = recent
	return d, nil
}

func (s *queryService) OwnerStats(ctx context.Context, p domain.Principal) (*domain.OwnerStats, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}
	condos, bookings, err := s.ownerData(ctx, p.UserID, nil)
	if err != nil {
		return nil, fmt.Errorf("owner stats: %w", err)
	}

	perCondo := make(map[int64][]domain.Booking, len(condos))
	for _, b := range bookings {
		perCondo[b.CondoID] = append(perCondo[b.CondoID], b)
	}

	stats := &domain.OwnerStats{
		Condos:        make([]domain.CondoStats, 0, len(condos)),
		TotalBookings: len(bookings),
		OccupancyRate: domain.OccupancyRate(condos),
	}
	for i := range condos {
		c := &condos[i]
		cs := domain.CondoStats{
			Condo:            c.Summary(),
			Status:           c.Status,
			PricePerNight:    c.PricePerNight,
			BookingsByStatus: make(map[domain.BookingStatus]int),
		}
		for _, b := range perCondo[c.ID] {
			cs.BookingsByStatus[b.Status]++
			if b.Status == domain.BookingCheckedOut {
				cs.NightsBooked += domain.WholeDays(b.StartDateTime, b.EndDateTime)
			}
		}
		cs.Revenue = domain.Revenue(perCondo[c.ID], c.PricePerNight)
		stats.TotalRevenue += cs.Revenue
		stats.Condos = append(stats.Condos, cs)
	}
	sort.Slice(stats.Condos, func(i, j int) bool { return stats.Condos[i].Condo.ID < stats.Condos[j].Condo.ID })
	return stats, nil
}

func (s *queryService) FrontDeskDashboard(ctx context.Context, p domain.Principal) (*domain.FrontDeskDashboard, error) {
	if err := requireRole(p, domain.RoleFrontDesk); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	var (
		condo    *domain.Condo
		bookings []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		condo, err = repos.Condos.GetByFrontDesk(gctx, p.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = repos.Bookings.ListByFrontDesk(gctx, p.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("front desk dashboard: %w", err)
	}
	if condo == nil {
		return nil, domain.NotFound("no condo is assigned to this account")
	}

	now := s.now()
	today := domain.StartOfDayUTC(now)
	tomorrow := today.Add(24 * time.Hour)

	d := &domain.FrontDeskDashboard{
		Condo:         condo.Summary(),
		CondoStatus:   condo.Status,
		ArrivalsToday: []domain.FrontDeskBookingView{},
		Overdue:       []domain.FrontDeskBookingView{},
		InHouse:       []domain.FrontDeskBookingView{},
		Upcoming:      []domain.FrontDeskBookingView{},
	}
	// bookings arrive newest first; the desk reads them in arrival order
	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].StartDateTime.Before(bookings[j].StartDateTime) })
	for i := range bookings {
		b := &bookings[i]
		switch {
		case b.Status == domain.BookingPendingApproval:
			d.PendingBookings++
		case b.Status == domain.BookingCheckedIn:
			d.InHouse = append(d.InHouse, domain.NewFrontDeskBookingView(b))
		case b.Status == domain.BookingApproved && b.StartDateTime.Before(today):
			d.Overdue = append(d.Overdue, domain.NewFrontDeskBookingView(b))
		case b.Status == domain.BookingApproved && b.StartDateTime.Before(tomorrow):
			d.ArrivalsToday = append(d.ArrivalsToday, domain.NewFrontDeskBookingView(b))
		case b.Status == domain.BookingApproved && !b.StartDateTime.Before(tomorrow):
			d.Upcoming = append(d.Upcoming, domain.NewFrontDeskBookingView(b))
		}
	}
	return d, nil
}

// Availability is public: it reports blocked ranges without guest details.
func (s *queryService) Availability(ctx context.Context, condoID int64, start, end time.Time) (*domain.Availability, error) {
	start, end = start.UTC(), end.UTC()
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, domain.Validation("endDate must be after startDate")
	}

	repos := s.store.Repos()
	condo, err := repos.Condos.GetByID(ctx, condoID)
	if err != nil {
		return nil, fmt.Errorf("load condo: %w", err)
	}
	if condo == nil {
		return nil, domain.NotFound("condo %d not found", condoID)
	}

	blocking, err := repos.Bookings.ListActiveOverlapping(ctx, condoID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	ranges := make([]domain.BookingRange, 0, len(blocking))
	for _, b := range blocking {
		ranges = append(ranges, domain.BookingRange{
			StartDateTime: b.StartDateTime,
			EndDateTime:   b.EndDateTime,
			Status:        b.Status,
		})
	}
	return &domain.Availability{
		CondoID:      condoID,
		StartDate:    start,
		EndDate:      end,
		IsAvailable:  len(ranges) == 0,
		BookedRanges: ranges,
	}, nil
}

var _ QueryService = (*queryService)(nil)
