package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/jackc/pgx/v5"
)

type BookingRepoImpl struct{ db DBTX }

func NewBookingRepo(db DBTX) *BookingRepoImpl { return &BookingRepoImpl{db: db} }

const bookingCols = `b.id, b.full_name, b.email, b.contact_number, b.guest_count,
b.start_date_time, b.end_date_time, b.payment_image_url, b.notes,
b.status, b.qr_code_data, b.created_at, b.updated_at,
b.approved_at, b.approved_by, b.rejection_reason,
b.checked_in_at, b.checked_out_at, b.condo_id, b.guest_user_id`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.FullName, &b.Email, &b.ContactNumber, &b.GuestCount,
		&b.StartDateTime, &b.EndDateTime, &b.PaymentImageURL, &b.Notes,
		&b.Status, &b.QRCodeData, &b.CreatedAt, &b.UpdatedAt,
		&b.ApprovedAt, &b.ApprovedBy, &b.RejectionReason,
		&b.CheckedInAt, &b.CheckedOutAt, &b.CondoID, &b.GuestUserID,
	)
	if err != nil {
		return nil, err
	}
	b.StartDateTime = b.StartDateTime.UTC()
	b.EndDateTime = b.EndDateTime.UTC()
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	bs := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bs = append(bs, *b)
	}
	return bs, rows.Err()
}

func (r *BookingRepoImpl) getOne(ctx context.Context, q string, args ...any) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	b, err := scanBooking(r.db.QueryRow(ctx, q, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (r *BookingRepoImpl) list(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return collectBookings(rows)
}

func (r *BookingRepoImpl) Create(ctx context.Context, in *domain.NewBooking, now time.Time) (*domain.Booking, error) {
	const q = `INSERT INTO bookings AS b (
    full_name, email, contact_number, guest_count,
    start_date_time, end_date_time, payment_image_url, notes,
    status, condo_id, guest_user_id, created_at, updated_at
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
  RETURNING ` + bookingCols

	b, err := r.getOne(ctx, q,
		in.FullName, in.Email, in.ContactNumber, in.GuestCount,
		in.StartDateTime, in.EndDateTime, in.PaymentImageURL, in.Notes,
		domain.BookingPendingApproval, in.CondoID, in.GuestUserID, now,
	)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("insert booking returned no row")
	}
	return b, nil
}

func (r *BookingRepoImpl) ListActiveOverlapping(ctx context.Context, condoID int64, start, end time.Time) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		WHERE b.condo_id = $1
		  AND b.status <> ALL($4)
		  AND b.start_date_time < $3
		  AND $2 < b.end_date_time
		ORDER BY b.start_date_time`
	return r.list(ctx, q, condoID, start, end, statusStrings(domain.InactiveStatuses))
}

func (r *BookingRepoImpl) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		JOIN condos c ON c.id = b.condo_id
		WHERE b.id = $1 AND c.owner_id = $2
		FOR UPDATE OF b`
	return r.getOne(ctx, q, id, ownerID)
}

func (r *BookingRepoImpl) GetForFrontDesk(ctx context.Context, id, frontDeskID int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		JOIN condos c ON c.id = b.condo_id
		WHERE b.id = $1 AND c.front_desk_id = $2
		FOR UPDATE OF b`
	return r.getOne(ctx, q, id, frontDeskID)
}

func (r *BookingRepoImpl) UpdateStatus(ctx context.Context, b *domain.Booking) error {
	const q = `UPDATE bookings SET
		status = $2, qr_code_data = $3,
		approved_at = $4, approved_by = $5, rejection_reason = $6,
		checked_in_at = $7, checked_out_at = $8, updated_at = $9
	WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := r.db.Exec(ctx, q, b.ID, b.Status, b.QRCodeData,
		b.ApprovedAt, b.ApprovedBy, b.RejectionReason,
		b.CheckedInAt, b.CheckedOutAt, b.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update booking %d: %w", b.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r *BookingRepoImpl) ListByOwner(ctx context.Context, ownerID int64, status *domain.BookingStatus) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		JOIN condos c ON c.id = b.condo_id
		WHERE c.owner_id = $1
		  AND ($2::text IS NULL OR b.status = $2)
		ORDER BY b.created_at DESC, b.id DESC`
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	return r.list(ctx, q, ownerID, filter)
}

func (r *BookingRepoImpl) ListByFrontDesk(ctx context.Context, frontDeskID int64) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		JOIN condos c ON c.id = b.condo_id
		WHERE c.front_desk_id = $1
		ORDER BY b.created_at DESC, b.id DESC`
	return r.list(ctx, q, frontDeskID)
}

func (r *BookingRepoImpl) ListByCondo(ctx context.Context, condoID int64) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		WHERE b.condo_id = $1
		ORDER BY b.start_date_time`
	return r.list(ctx, q, condoID)
}

func (r *BookingRepoImpl) ListStalePending(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT ` + bookingCols + `
		FROM bookings b
		WHERE b.status = $1 AND b.start_date_time <= $2
		ORDER BY b.start_date_time
		LIMIT $3
		FOR UPDATE SKIP LOCKED`
	return r.list(ctx, q, domain.BookingPendingApproval, startedBefore, limit)
}

func statusStrings(ss []domain.BookingStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

var _ repo.BookingRepo = (*BookingRepoImpl)(nil)
