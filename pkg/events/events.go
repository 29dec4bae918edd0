package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/condo-bookings/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("condo-bookings"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher drops events. Used when NATS_URL is empty.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, _ any) error {
	logger.DebugContext(ctx, "Event bus disabled, dropping event", "subject", subject)
	return nil
}

func (NopPublisher) Close() error { return nil }

// Event subjects
const (
	BookingCreated    = "booking.created"
	BookingApproved   = "booking.approved"
	BookingRejected   = "booking.rejected"
	BookingCancelled  = "booking.cancelled"
	BookingCheckedIn  = "booking.checked_in"
	BookingCheckedOut = "booking.checked_out"

	CondoCreated       = "condo.created"
	CondoUpdated       = "condo.updated"
	CondoStatusChanged = "condo.status_changed"
	CondoDeleted       = "condo.deleted"
)

type BookingEvent struct {
	BookingID     int64     `json:"booking_id"`
	CondoID       int64     `json:"condo_id"`
	Status        string    `json:"status"`
	GuestEmail    string    `json:"guest_email,omitempty"`
	StartDateTime time.Time `json:"start_date_time"`
	EndDateTime   time.Time `json:"end_date_time"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type CondoEvent struct {
	CondoID    int64     `json:"condo_id"`
	OwnerID    int64     `json:"owner_id"`
	Status     string    `json:"status,omitempty"`
	Changes    []string  `json:"changes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

var (
	_ Publisher = (*NATSEventBus)(nil)
	_ Publisher = NopPublisher{}
)
