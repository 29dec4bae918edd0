package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo keeps replayable responses in Postgres. It backs the
// idempotency middleware when Redis is not configured.
type IdempotencyRepo struct{ db DBTX }

func NewIdempotencyRepo(db DBTX) *IdempotencyRepo {
	return &IdempotencyRepo{db: db}
}

func (r *IdempotencyRepo) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var response string
	err := r.db.QueryRow(ctx,
		`SELECT response FROM idempotency_keys WHERE key_hash = $1 AND expires_at > now()`, key,
	).Scan(&response)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	return response, err
}

// Set stores the first response for key; later writes for the same key are ignored.
func (r *IdempotencyRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		INSERT INTO idempotency_keys (key_hash, response, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO UPDATE
		SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at <= now()`
	_, err := r.db.Exec(ctx, q, key, value, time.Now().Add(ttl))
	return err
}

func (r *IdempotencyRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
