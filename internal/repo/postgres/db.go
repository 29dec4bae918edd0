package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/diagnosis/condo-bookings/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool       *pgxpool.Pool
	maxRetries int
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, maxRetries: 3}
}

func (s *Store) Repos() repo.Repos {
	return reposFor(s.pool)
}

func reposFor(db DBTX) repo.Repos {
	return repo.Repos{
		Condos:   NewCondoRepo(db),
		Bookings: NewBookingRepo(db),
		Users:    NewUsersRepo(db),
	}
}

// Within runs fn in a serializable transaction, retrying on serialization
// failures and deadlocks.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, r repo.Repos) error) error {
	for attempt := 1; ; attempt++ {
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(ctx, reposFor(tx))
		})
		err = mapError(err)
		if errors.Is(err, domain.ErrSerialization) && attempt < s.maxRetries {
			logger.WarnContext(ctx, "Retrying serializable transaction", "attempt", attempt, "error", err)
			continue
		}
		return err
	}
}

// mapError turns constraint and serialization errors into domain sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", domain.ErrSerialization, pgErr.Message)
	case "23P01":
		return fmt.Errorf("%w: %s", domain.ErrOverlap, pgErr.ConstraintName)
	case "23505":
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	default:
		return err
	}
}

var _ repo.Store = (*Store)(nil)
