// Package service holds the booking engine, the condo lifecycle manager, the
// scoped read models and account management. Every write goes through
// repo.Store.Within; notifications leave only after commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/notify"
)

// Notifier accepts post-commit notification work. Enqueue must not block.
type Notifier interface {
	Enqueue(ctx context.Context, job notify.Job) bool
}

// Clock returns the current instant. Services read time only through it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

type nopNotifier struct{}

func (nopNotifier) Enqueue(context.Context, notify.Job) bool { return true }

// passThrough keeps domain errors intact and wraps everything else with op.
func passThrough(err error, op string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRole(p domain.Principal, role domain.Role) error {
	if p.Anonymous() {
		return domain.Unauthorized(domain.CodeUnauthorized, "authentication required")
	}
	if !p.HasRole(role) {
		return domain.Forbidden("%s role required", role)
	}
	return nil
}
