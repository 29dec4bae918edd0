package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/jackc/pgx/v5"
)

type CondoRepoImpl struct{ db DBTX }

func NewCondoRepo(db DBTX) *CondoRepoImpl { return &CondoRepoImpl{db: db} }

const condoCols = `id, name, location, description, amenities, max_guests,
price_per_night, image_url, unique_code, booking_link, status,
created_at, last_updated, owner_id, front_desk_id`

func scanCondo(row pgx.Row) (*domain.Condo, error) {
	var c domain.Condo
	if err := row.Scan(
		&c.ID, &c.Name, &c.Location, &c.Description, &c.Amenities, &c.MaxGuests,
		&c.PricePerNight, &c.ImageURL, &c.UniqueCode, &c.BookingLink, &c.Status,
		&c.CreatedAt, &c.LastUpdated, &c.OwnerID, &c.FrontDeskID,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CondoRepoImpl) getOne(ctx context.Context, q string, args ...any) (*domain.Condo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	c, err := scanCondo(r.db.QueryRow(ctx, q, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *CondoRepoImpl) exec(ctx context.Context, q string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CondoRepoImpl) Create(ctx context.Context, c *domain.Condo) (*domain.Condo, error) {
	const q = `INSERT INTO condos (
    name, location, description, amenities, max_guests, price_per_night,
    image_url, unique_code, booking_link, status, created_at, last_updated,
    owner_id, front_desk_id
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11,$12,$13)
  RETURNING ` + condoCols

	out, err := r.getOne(ctx, q,
		c.Name, c.Location, c.Description, c.Amenities, c.MaxGuests, c.PricePerNight,
		c.ImageURL, c.UniqueCode, c.BookingLink, c.Status, c.CreatedAt,
		c.OwnerID, c.FrontDeskID,
	)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("insert condo returned no row")
	}
	return out, nil
}

func (r *CondoRepoImpl) SetBookingLink(ctx context.Context, id int64, link string) error {
	return r.exec(ctx, `UPDATE condos SET booking_link = $2 WHERE id = $1`, id, link)
}

func (r *CondoRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Condo, error) {
	return r.getOne(ctx, `SELECT `+condoCols+` FROM condos WHERE id = $1`, id)
}

func (r *CondoRepoImpl) GetByFrontDesk(ctx context.Context, frontDeskID int64) (*domain.Condo, error) {
	return r.getOne(ctx, `SELECT `+condoCols+` FROM condos WHERE front_desk_id = $1`, frontDeskID)
}

func (r *CondoRepoImpl) ExistsByNameLocation(ctx context.Context, name, location string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM condos WHERE lower(name) = lower($1) AND lower(location) = lower($2))`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, q, name, location).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (r *CondoRepoImpl) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Condo, error) {
	const q = `SELECT ` + condoCols + ` FROM condos WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	cs := make([]domain.Condo, 0)
	for rows.Next() {
		c, err := scanCondo(rows)
		if err != nil {
			return nil, err
		}
		cs = append(cs, *c)
	}
	return cs, rows.Err()
}

func (r *CondoRepoImpl) Update(ctx context.Context, c *domain.Condo) error {
	const q = `UPDATE condos SET
		name = $2, location = $3, description = $4, amenities = $5,
		max_guests = $6, price_per_night = $7, image_url = $8, last_updated = $9
	WHERE id = $1`
	return r.exec(ctx, q, c.ID, c.Name, c.Location, c.Description, c.Amenities,
		c.MaxGuests, c.PricePerNight, c.ImageURL, c.LastUpdated)
}

func (r *CondoRepoImpl) SetStatus(ctx context.Context, id int64, status domain.CondoStatus, at time.Time) error {
	return r.exec(ctx, `UPDATE condos SET status = $2, last_updated = $3 WHERE id = $1`, id, status, at)
}

func (r *CondoRepoImpl) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM condos WHERE id = $1`, id)
}

var _ repo.CondoRepo = (*CondoRepoImpl)(nil)
