// Package memory is an in-process implementation of the repository ports.
// It enforces the same uniqueness, overlap and foreign-key rules as the
// Postgres schema and gives Within all-or-nothing semantics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
)

type state struct {
	nextUserID    int64
	nextCondoID   int64
	nextBookingID int64
	users         map[int64]domain.User
	condos        map[int64]domain.Condo
	bookings      map[int64]domain.Booking
}

func newState() *state {
	return &state{
		users:    map[int64]domain.User{},
		condos:   map[int64]domain.Condo{},
		bookings: map[int64]domain.Booking{},
	}
}

func (s *state) clone() *state {
	c := &state{
		nextUserID:    s.nextUserID,
		nextCondoID:   s.nextCondoID,
		nextBookingID: s.nextBookingID,
		users:         make(map[int64]domain.User, len(s.users)),
		condos:        make(map[int64]domain.Condo, len(s.condos)),
		bookings:      make(map[int64]domain.Booking, len(s.bookings)),
	}
	for k, v := range s.users {
		v.Roles = append([]domain.Role(nil), v.Roles...)
		c.users[k] = v
	}
	for k, v := range s.condos {
		c.condos[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

type Store struct {
	mu     sync.Mutex
	st     *state
	faults map[string]error
}

func NewStore() *Store {
	return &Store{st: newState(), faults: map[string]error{}}
}

// FailNext makes the next call of op ("condos.create", "bookings.create", ...)
// return err. Used to exercise rollback and compensation paths.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) Repos() repo.Repos {
	return s.repos(&view{store: s, locked: false})
}

func (s *Store) repos(v *view) repo.Repos {
	return repo.Repos{
		Condos:   &condoRepo{v},
		Bookings: &bookingRepo{v},
		Users:    &userRepo{v},
	}
}

// Within serializes transactions and applies fn's writes only when it succeeds.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, r repo.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	draft := s.st.clone()
	if err := fn(ctx, s.repos(&view{store: s, locked: true, st: draft})); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// view binds repositories either to the live state (taking the lock per call)
// or to a transaction draft (lock already held by Within).
type view struct {
	store  *Store
	locked bool
	st     *state
}

func (v *view) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.locked {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	if err, ok := v.store.faults[op]; ok {
		delete(v.store.faults, op)
		return err
	}
	st := v.st
	if st == nil {
		st = v.store.st
	}
	return fn(st)
}

type condoRepo struct{ v *view }

func (r *condoRepo) Create(ctx context.Context, c *domain.Condo) (*domain.Condo, error) {
	var out domain.Condo
	err := r.v.do(ctx, "condos.create", func(st *state) error {
		for _, existing := range st.condos {
			if sameFold(existing.Name, c.Name) && sameFold(existing.Location, c.Location) {
				return fmt.Errorf("%w: condos_name_location_key", domain.ErrDuplicate)
			}
			if existing.UniqueCode == c.UniqueCode {
				return fmt.Errorf("%w: condos_unique_code_key", domain.ErrDuplicate)
			}
			if existing.FrontDeskID == c.FrontDeskID {
				return fmt.Errorf("%w: condos_front_desk_id_key", domain.ErrDuplicate)
			}
		}
		if _, ok := st.users[c.OwnerID]; !ok {
			return fmt.Errorf("condos_owner_id_fkey: owner %d missing", c.OwnerID)
		}
		if _, ok := st.users[c.FrontDeskID]; !ok {
			return fmt.Errorf("condos_front_desk_id_fkey: user %d missing", c.FrontDeskID)
		}
		st.nextCondoID++
		out = *c
		out.ID = st.nextCondoID
		out.LastUpdated = out.CreatedAt
		st.condos[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *condoRepo) SetBookingLink(ctx context.Context, id int64, link string) error {
	return r.v.do(ctx, "condos.set_booking_link", func(st *state) error {
		c, ok := st.condos[id]
		if !ok {
			return errNoRows("condo", id)
		}
		c.BookingLink = link
		st.condos[id] = c
		return nil
	})
}

func (r *condoRepo) GetByID(ctx context.Context, id int64) (*domain.Condo, error) {
	var out *domain.Condo
	err := r.v.do(ctx, "condos.get", func(st *state) error {
		if c, ok := st.condos[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *condoRepo) GetByFrontDesk(ctx context.Context, frontDeskID int64) (*domain.Condo, error) {
	var out *domain.Condo
	err := r.v.do(ctx, "condos.get", func(st *state) error {
		for _, c := range st.condos {
			if c.FrontDeskID == frontDeskID {
				c := c
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *condoRepo) ExistsByNameLocation(ctx context.Context, name, location string) (bool, error) {
	var exists bool
	err := r.v.do(ctx, "condos.exists", func(st *state) error {
		for _, c := range st.condos {
			if sameFold(c.Name, name) && sameFold(c.Location, location) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *condoRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Condo, error) {
	out := make([]domain.Condo, 0)
	err := r.v.do(ctx, "condos.list", func(st *state) error {
		for _, c := range st.condos {
			if c.OwnerID == ownerID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *condoRepo) Update(ctx context.Context, c *domain.Condo) error {
	return r.v.do(ctx, "condos.update", func(st *state) error {
		cur, ok := st.condos[c.ID]
		if !ok {
			return errNoRows("condo", c.ID)
		}
		for id, other := range st.condos {
			if id != c.ID && sameFold(other.Name, c.Name) && sameFold(other.Location, c.Location) {
				return fmt.Errorf("%w: condos_name_location_key", domain.ErrDuplicate)
			}
		}
		cur.Name, cur.Location, cur.Description, cur.Amenities = c.Name, c.Location, c.Description, c.Amenities
		cur.MaxGuests, cur.PricePerNight, cur.ImageURL = c.MaxGuests, c.PricePerNight, c.ImageURL
		cur.LastUpdated = c.LastUpdated
		st.condos[c.ID] = cur
		return nil
	})
}

func (r *condoRepo) SetStatus(ctx context.Context, id int64, status domain.CondoStatus, at time.Time) error {
	return r.v.do(ctx, "condos.set_status", func(st *state) error {
		c, ok := st.condos[id]
		if !ok {
			return errNoRows("condo", id)
		}
		c.Status = status
		c.LastUpdated = at
		st.condos[id] = c
		return nil
	})
}

func (r *condoRepo) Delete(ctx context.Context, id int64) error {
	return r.v.do(ctx, "condos.delete", func(st *state) error {
		if _, ok := st.condos[id]; !ok {
			return errNoRows("condo", id)
		}
		delete(st.condos, id)
		for bid, b := range st.bookings {
			if b.CondoID == id {
				delete(st.bookings, bid)
			}
		}
		return nil
	})
}

type bookingRepo struct{ v *view }

func (r *bookingRepo) Create(ctx context.Context, in *domain.NewBooking, now time.Time) (*domain.Booking, error) {
	var out domain.Booking
	err := r.v.do(ctx, "bookings.create", func(st *state) error {
		if _, ok := st.condos[in.CondoID]; !ok {
			return fmt.Errorf("bookings_condo_id_fkey: condo %d missing", in.CondoID)
		}
		if overlapsActive(st, 0, in.CondoID, in.StartDateTime, in.EndDateTime) {
			return fmt.Errorf("%w: bookings_no_overlap", domain.ErrOverlap)
		}
		st.nextBookingID++
		out = domain.Booking{
			ID:              st.nextBookingID,
			FullName:        in.FullName,
			Email:           in.Email,
			ContactNumber:   in.ContactNumber,
			GuestCount:      in.GuestCount,
			StartDateTime:   in.StartDateTime,
			EndDateTime:     in.EndDateTime,
			PaymentImageURL: in.PaymentImageURL,
			Notes:           in.Notes,
			Status:          domain.BookingPendingApproval,
			CreatedAt:       now,
			UpdatedAt:       now,
			CondoID:         in.CondoID,
			GuestUserID:     in.GuestUserID,
		}
		st.bookings[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func overlapsActive(st *state, selfID, condoID int64, start, end time.Time) bool {
	for _, b := range st.bookings {
		if b.ID != selfID && b.CondoID == condoID && b.Status.IsActive() &&
			domain.Overlaps(start, end, b.StartDateTime, b.EndDateTime) {
			return true
		}
	}
	return false
}

func (r *bookingRepo) ListActiveOverlapping(ctx context.Context, condoID int64, start, end time.Time) ([]domain.Booking, error) {
	return r.filter(ctx, func(st *state, b domain.Booking) bool {
		return b.CondoID == condoID && b.Status.IsActive() &&
			domain.Overlaps(start, end, b.StartDateTime, b.EndDateTime)
	}, byStart)
}

func (r *bookingRepo) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Booking, error) {
	return r.getScoped(ctx, id, func(c domain.Condo) bool { return c.OwnerID == ownerID })
}

func (r *bookingRepo) GetForFrontDesk(ctx context.Context, id, frontDeskID int64) (*domain.Booking, error) {
	return r.getScoped(ctx, id, func(c domain.Condo) bool { return c.FrontDeskID == frontDeskID })
}

func (r *bookingRepo) getScoped(ctx context.Context, id int64, allowed func(domain.Condo) bool) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.v.do(ctx, "bookings.get", func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return nil
		}
		if c, ok := st.condos[b.CondoID]; ok && allowed(c) {
			out = &b
		}
		return nil
	})
	return out, err
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, b *domain.Booking) error {
	return r.v.do(ctx, "bookings.update_status", func(st *state) error {
		cur, ok := st.bookings[b.ID]
		if !ok {
			return errNoRows("booking", b.ID)
		}
		if b.QRCodeData != nil {
			for id, other := range st.bookings {
				if id != b.ID && other.QRCodeData != nil && *other.QRCodeData == *b.QRCodeData {
					return fmt.Errorf("%w: bookings_qr_code_data_key", domain.ErrDuplicate)
				}
			}
		}
		if b.Status.IsActive() && overlapsActive(st, b.ID, cur.CondoID, cur.StartDateTime, cur.EndDateTime) {
			return fmt.Errorf("%w: bookings_no_overlap", domain.ErrOverlap)
		}
		cur.Status = b.Status
		cur.QRCodeData = b.QRCodeData
		cur.ApprovedAt = b.ApprovedAt
		cur.ApprovedBy = b.ApprovedBy
		cur.RejectionReason = b.RejectionReason
		cur.CheckedInAt = b.CheckedInAt
		cur.CheckedOutAt = b.CheckedOutAt
		cur.UpdatedAt = b.UpdatedAt
		st.bookings[b.ID] = cur
		return nil
	})
}

func (r *bookingRepo) ListByOwner(ctx context.Context, ownerID int64, status *domain.BookingStatus) ([]domain.Booking, error) {
	return r.filter(ctx, func(st *state, b domain.Booking) bool {
		c, ok := st.condos[b.CondoID]
		return ok && c.OwnerID == ownerID && (status == nil || b.Status == *status)
	}, byCreatedDesc)
}

func (r *bookingRepo) ListByFrontDesk(ctx context.Context, frontDeskID int64) ([]domain.Booking, error) {
	return r.filter(ctx, func(st *state, b domain.Booking) bool {
		c, ok := st.condos[b.CondoID]
		return ok && c.FrontDeskID == frontDeskID
	}, byCreatedDesc)
}

func (r *bookingRepo) ListByCondo(ctx context.Context, condoID int64) ([]domain.Booking, error) {
	return r.filter(ctx, func(_ *state, b domain.Booking) bool { return b.CondoID == condoID }, byStart)
}

func (r *bookingRepo) ListStalePending(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Booking, error) {
	out, err := r.filter(ctx, func(_ *state, b domain.Booking) bool {
		return b.Status == domain.BookingPendingApproval && !b.StartDateTime.After(startedBefore)
	}, byStart)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *bookingRepo) filter(ctx context.Context, keep func(*state, domain.Booking) bool, less func(a, b domain.Booking) bool) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	err := r.v.do(ctx, "bookings.list", func(st *state) error {
		for _, b := range st.bookings {
			if keep(st, b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, err
}

func byStart(a, b domain.Booking) bool {
	if a.StartDateTime.Equal(b.StartDateTime) {
		return a.ID < b.ID
	}
	return a.StartDateTime.Before(b.StartDateTime)
}

func byCreatedDesc(a, b domain.Booking) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

type userRepo struct{ v *view }

func (r *userRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	var out domain.User
	err := r.v.do(ctx, "users.create", func(st *state) error {
		for _, existing := range st.users {
			if sameFold(existing.Username, u.Username) {
				return fmt.Errorf("%w: users_username_key", domain.ErrDuplicate)
			}
			if sameFold(existing.Email, u.Email) {
				return fmt.Errorf("%w: users_email_key", domain.ErrDuplicate)
			}
		}
		st.nextUserID++
		out = *u
		out.ID = st.nextUserID
		out.Roles = append([]domain.Role(nil), u.Roles...)
		if out.CreatedAt.IsZero() {
			out.CreatedAt = time.Now().UTC()
		}
		st.users[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, "users.get", func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	login := strings.TrimSpace(usernameOrEmail)
	var out *domain.User
	err := r.v.do(ctx, "users.get", func(st *state) error {
		for _, u := range st.users {
			if (strings.Contains(login, "@") && sameFold(u.Email, login)) || sameFold(u.Username, login) {
				u := u
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.v.do(ctx, "users.exists", func(st *state) error {
		for _, u := range st.users {
			if sameFold(u.Username, username) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	return r.v.do(ctx, "users.delete", func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return errNoRows("user", id)
		}
		for _, c := range st.condos {
			if c.OwnerID == id || c.FrontDeskID == id {
				return fmt.Errorf("condos fkey: user %d still referenced by condo %d", id, c.ID)
			}
		}
		delete(st.users, id)
		for bid, b := range st.bookings {
			if b.GuestUserID != nil && *b.GuestUserID == id {
				b.GuestUserID = nil
				st.bookings[bid] = b
			}
		}
		return nil
	})
}

func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func errNoRows(kind string, id int64) error {
	return fmt.Errorf("%s %d: no rows in result set", kind, id)
}

var (
	_ repo.Store       = (*Store)(nil)
	_ repo.CondoRepo   = (*condoRepo)(nil)
	_ repo.BookingRepo = (*bookingRepo)(nil)
	_ repo.UserRepo    = (*userRepo)(nil)
)
