package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/repo"
	"github.com/jackc/pgx/v5"
)

type UsersRepoImpl struct{ db DBTX }

func NewUsersRepo(db DBTX) *UsersRepoImpl { return &UsersRepoImpl{db: db} }

const userSelect = `SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.phone, u.created_at,
  COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`

func (r *UsersRepoImpl) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	q := userSelect + ` WHERE ` + where + ` GROUP BY u.id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u domain.User
	var roles []string
	err := r.db.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.CreatedAt, &roles,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	for _, name := range roles {
		if role, ok := domain.ParseRole(name); ok {
			u.Roles = append(u.Roles, role)
		}
	}
	return &u, nil
}

// Create inserts the user and its role grants. Callers run it inside a
// transaction so both statements land together.
func (r *UsersRepoImpl) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const insertUser = `
INSERT INTO users (username, email, password_hash, full_name, phone)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at`
	const grantRoles = `
INSERT INTO user_roles (user_id, role_id)
SELECT $1, id FROM roles WHERE name = ANY($2)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := *u
	if err := r.db.QueryRow(ctx, insertUser, u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone).
		Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	names := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		names[i] = string(role)
	}
	ct, err := r.db.Exec(ctx, grantRoles, out.ID, names)
	if err != nil {
		return nil, mapError(err)
	}
	if int(ct.RowsAffected()) != len(names) {
		return nil, fmt.Errorf("grant roles %v: %d of %d applied", names, ct.RowsAffected(), len(names))
	}
	return &out, nil
}

func (r *UsersRepoImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `u.id = $1`, id)
}

func (r *UsersRepoImpl) GetByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	login := strings.TrimSpace(usernameOrEmail)
	if strings.Contains(login, "@") {
		return r.getOne(ctx, `lower(u.email) = lower($1)`, login)
	}
	return r.getOne(ctx, `lower(u.username) = lower($1)`, login)
}

func (r *UsersRepoImpl) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, q, username).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (r *UsersRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

var _ repo.UserRepo = (*UsersRepoImpl)(nil)
