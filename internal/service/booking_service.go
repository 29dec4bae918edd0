package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/notify"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/diagnosis/condo-bookings/internal/utils"
	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

const (
	MaxGuestsPerBooking = 10
	staleSweepBatch     = 100
)

type BookingService interface {
	CreateBooking(ctx context.Context, in domain.NewBooking) (*domain.Booking, error)
	ApproveBooking(ctx context.Context, p domain.Principal, bookingID int64, d domain.Decision) (*domain.ApprovalResult, error)
	CheckIn(ctx context.Context, p domain.Principal, bookingID int64, qrCode string) (*domain.Booking, error)
	CheckOut(ctx context.Context, p domain.Principal, bookingID int64) (*domain.Booking, error)
	CancelStalePending(ctx context.Context) (int, error)
}

type bookingService struct {
	store    repo.Store
	notifier Notifier
	cfg      config.BookingConfig
	now      Clock
}

func NewBookingService(store repo.Store, notifier Notifier, cfg config.BookingConfig, clock Clock) BookingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.MaxPaymentImageBytes <= 0 {
		cfg.MaxPaymentImageBytes = 5_000_000
	}
	return &bookingService{store: store, notifier: notifier, cfg: cfg, now: clockOrDefault(clock)}
}

func notAvailable() error {
	return domain.Conflict(domain.CodeNotAvailable, "condo is not available for the selected dates")
}

func (s *bookingService) CreateBooking(ctx context.Context, in domain.NewBooking) (*domain.Booking, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	var (
		created   *domain.Booking
		condoName string
	)
	err = s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		condo, err := r.Condos.GetByID(ctx, in.CondoID)
		if err != nil {
			return fmt.Errorf("load condo: %w", err)
		}
		if condo == nil {
			return domain.NotFound("condo %d not found", in.CondoID)
		}

		clashes, err := r.Bookings.ListActiveOverlapping(ctx, condo.ID, in.StartDateTime, in.EndDateTime)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if len(clashes) > 0 {
			return notAvailable()
		}
		if in.GuestCount > condo.MaxGuests {
			return domain.ValidationCode(domain.CodeTooManyGuests,
				"guest count %d exceeds the maximum of %d for this condo", in.GuestCount, condo.MaxGuests)
		}

		b, err := r.Bookings.Create(ctx, &in, s.now())
		if errors.Is(err, domain.ErrOverlap) {
			return notAvailable()
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		created, condoName = b, condo.Name
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "create booking")
	}

	logger.InfoContext(ctx, "Booking created",
		"booking_id", created.ID, "condo_id", created.CondoID, "guests", created.GuestCount)
	s.notifier.Enqueue(ctx, notify.Job{Kind: notify.KindBookingReceived, Booking: *created, CondoName: condoName})
	return created, nil
}

func (s *bookingService) normalize(in domain.NewBooking) (domain.NewBooking, error) {
	in.FullName = utils.CollapseSpaces(in.FullName)
	in.Email = utils.NormalizeEmail(in.Email)
	in.ContactNumber = utils.NormalizePhone(in.ContactNumber)
	in.Notes = strings.TrimSpace(in.Notes)
	in.PaymentImageURL = strings.TrimSpace(in.PaymentImageURL)

	switch {
	case in.FullName == "":
		return in, domain.Validation("full name is required")
	case !utils.IsValidEmail(in.Email):
		return in, domain.Validation("a valid email is required")
	case !utils.IsValidPhone(in.ContactNumber):
		return in, domain.Validation("a valid contact number is required")
	case in.GuestCount < 1 || in.GuestCount > MaxGuestsPerBooking:
		return in, domain.Validation("guest count must be between 1 and %d", MaxGuestsPerBooking)
	case in.StartDateTime.IsZero() || in.EndDateTime.IsZero():
		return in, domain.Validation("start and end are required")
	case !in.EndDateTime.After(in.StartDateTime):
		return in, domain.Validation("end must be after start")
	case len(in.PaymentImageURL) > s.cfg.MaxPaymentImageBytes:
		return in, domain.ValidationCode(domain.CodePayloadTooLarge,
			"payment image exceeds %d bytes", s.cfg.MaxPaymentImageBytes)
	case in.CondoID <= 0:
		return in, domain.Validation("condo id is required")
	}

	in.StartDateTime = in.StartDateTime.UTC()
	in.EndDateTime = in.EndDateTime.UTC()
	return in, nil
}

// newQRToken is replaced in tests.
var newQRToken = func(condoID, bookingID int64) string {
	return fmt.Sprintf("CONDO-%d-BOOKING-%d-%s", condoID, bookingID, uuid.NewString())
}

func (s *bookingService) ApproveBooking(ctx context.Context, p domain.Principal, bookingID int64, d domain.Decision) (*domain.ApprovalResult, error) {
	if err := requireRole(p, domain.RoleOwner); err != nil {
		return nil, err
	}

	target := domain.BookingRejected
	if d.Approve {
		target = domain.BookingApproved
	}

	var (
		booking   domain.Booking
		condoName string
	)
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		b, err := r.Bookings.GetForOwner(ctx, bookingID, p.UserID)
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if b == nil {
			return domain.NotFound("booking %d not found", bookingID)
		}
		if !domain.CanTransition(b.Status, target) {
			return domain.InvalidState(domain.CodeInvalidState,
				"booking %d is %s and can no longer be decided", b.ID, b.Status)
		}

		condo, err := r.Condos.GetByID(ctx, b.CondoID)
		if err != nil {
			return fmt.Errorf("load condo: %w", err)
		}
		if condo == nil {
			return domain.NotFound("booking %d not found", bookingID)
		}

		now := s.now()
		b.Status = target
		b.UpdatedAt = now
		if d.Approve {
			token := newQRToken(b.CondoID, b.ID)
			approver := p.UserID
			b.QRCodeData = &token
			b.ApprovedAt = &now
			b.ApprovedBy = &approver
		} else if reason := strings.TrimSpace(d.RejectionReason); reason != "" {
			b.RejectionReason = &reason
		}

		if err := r.Bookings.UpdateStatus(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if d.Approve {
			if err := r.Condos.SetStatus(ctx, condo.ID, domain.CondoOccupied, now); err != nil {
				return fmt.Errorf("mark condo occupied: %w", err)
			}
		}
		booking, condoName = *b, condo.Name
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "decide booking")
	}

	result := &domain.ApprovalResult{BookingID: booking.ID, Status: booking.Status}
	job := notify.Job{Booking: booking, CondoName: condoName}
	if d.Approve {
		result.QRCodeData = *booking.QRCodeData
		job.Kind = notify.KindBookingApproved
		job.QRCode = result.QRCodeData
	} else {
		job.Kind = notify.KindBookingRejected
		if booking.RejectionReason != nil {
			job.Reason = *booking.RejectionReason
		}
	}

	logger.InfoContext(ctx, "Booking decided", "booking_id", booking.ID, "status", booking.Status)
	s.notifier.Enqueue(ctx, job)
	return result, nil
}

func (s *bookingService) CheckIn(ctx context.Context, p domain.Principal, bookingID int64, qrCode string) (*domain.Booking, error) {
	if err := requireRole(p, domain.RoleFrontDesk); err != nil {
		return nil, err
	}

	var (
		booking   domain.Booking
		condoName string
	)
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		b, condo, err := s.loadForDesk(ctx, r, p, bookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(b.Status, domain.BookingCheckedIn) {
			return domain.InvalidState(domain.CodeInvalidState,
				"booking %d is %s, only approved bookings can check in", b.ID, b.Status)
		}
		if b.QRCodeData == nil || subtle.ConstantTimeCompare([]byte(*b.QRCodeData), []byte(qrCode)) != 1 {
			return domain.ValidationCode(domain.CodeInvalidQRCode, "invalid QR code")
		}

		now := s.now()
		if now.Before(b.StartDateTime) {
			return domain.InvalidState(domain.CodeTooEarly,
				"check-in opens at %s", b.StartDateTime.Format(time.RFC3339))
		}

		b.Status = domain.BookingCheckedIn
		b.CheckedInAt = &now
		b.UpdatedAt = now
		if err := r.Bookings.UpdateStatus(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := r.Condos.SetStatus(ctx, condo.ID, domain.CondoOccupied, now); err != nil {
			return fmt.Errorf("mark condo occupied: %w", err)
		}
		booking, condoName = *b, condo.Name
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "check in")
	}

	logger.InfoContext(ctx, "Guest checked in", "booking_id", booking.ID, "condo_id", booking.CondoID)
	s.notifier.Enqueue(ctx, notify.Job{Kind: notify.KindCheckedIn, Booking: booking, CondoName: condoName})
	return &booking, nil
}

func (s *bookingService) CheckOut(ctx context.Context, p domain.Principal, bookingID int64) (*domain.Booking, error) {
	if err := requireRole(p, domain.RoleFrontDesk); err != nil {
		return nil, err
	}

	var (
		booking   domain.Booking
		condoName string
	)
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		b, condo, err := s.loadForDesk(ctx, r, p, bookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(b.Status, domain.BookingCheckedOut) {
			return domain.InvalidState(domain.CodeInvalidState,
				"booking %d is %s, only checked-in bookings can check out", b.ID, b.Status)
		}

		now := s.now()
		b.Status = domain.BookingCheckedOut
		b.CheckedOutAt = &now
		b.UpdatedAt = now
		if err := r.Bookings.UpdateStatus(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := r.Condos.SetStatus(ctx, condo.ID, domain.CondoAvailable, now); err != nil {
			return fmt.Errorf("mark condo available: %w", err)
		}
		booking, condoName = *b, condo.Name
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "check out")
	}

	logger.InfoContext(ctx, "Guest checked out", "booking_id", booking.ID, "condo_id", booking.CondoID)
	s.notifier.Enqueue(ctx, notify.Job{Kind: notify.KindCheckedOut, Booking: booking, CondoName: condoName})
	return &booking, nil
}

func (s *bookingService) loadForDesk(ctx context.Context, r repo.Repos, p domain.Principal, bookingID int64) (*domain.Booking, *domain.Condo, error) {
	b, err := r.Bookings.GetForFrontDesk(ctx, bookingID, p.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load booking: %w", err)
	}
	if b == nil {
		return nil, nil, domain.NotFound("booking %d not found", bookingID)
	}
	condo, err := r.Condos.GetByID(ctx, b.CondoID)
	if err != nil {
		return nil, nil, fmt.Errorf("load condo: %w", err)
	}
	if !p.IsFrontDeskOf(condo) {
		return nil, nil, domain.NotFound("booking %d not found", bookingID)
	}
	return b, condo, nil
}

// CancelStalePending cancels bookings still awaiting a decision after their
// start has passed, so they stop blocking the calendar.
func (s *bookingService) CancelStalePending(ctx context.Context) (int, error) {
	var cancelled []notify.Job
	err := s.store.Within(ctx, func(ctx context.Context, r repo.Repos) error {
		cancelled = cancelled[:0]
		now := s.now()
		stale, err := r.Bookings.ListStalePending(ctx, now, staleSweepBatch)
		if err != nil {
			return fmt.Errorf("list stale bookings: %w", err)
		}

		names := make(map[int64]string)
		for i := range stale {
			b := stale[i]
			if !domain.CanTransition(b.Status, domain.BookingCancelled) {
				continue
			}
			b.Status = domain.BookingCancelled
			b.UpdatedAt = now
			if err := r.Bookings.UpdateStatus(ctx, &b); err != nil {
				return fmt.Errorf("cancel booking %d: %w", b.ID, err)
			}

			name, ok := names[b.CondoID]
			if !ok {
				if c, err := r.Condos.GetByID(ctx, b.CondoID); err == nil && c != nil {
					name = c.Name
				}
				names[b.CondoID] = name
			}
			cancelled = append(cancelled, notify.Job{
				Kind:      notify.KindBookingCancelled,
				Booking:   b,
				CondoName: name,
				Reason:    "The booking was not confirmed before its start date.",
			})
		}
		return nil
	})
	if err != nil {
		return 0, passThrough(err, "cancel stale bookings")
	}

	for _, job := range cancelled {
		s.notifier.Enqueue(ctx, job)
	}
	if len(cancelled) > 0 {
		logger.InfoContext(ctx, "Cancelled stale pending bookings", "count", len(cancelled))
	}
	return len(cancelled), nil
}

var _ BookingService = (*bookingService)(nil)
