// Package notify delivers guest notifications and domain events after the
// triggering transaction has committed. Nothing here can fail a booking.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/platform/mailer"
	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/events"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

type Kind string

const (
	KindBookingReceived  Kind = "booking_received"
	KindBookingApproved  Kind = "booking_approved"
	KindBookingRejected  Kind = "booking_rejected"
	KindBookingCancelled Kind = "booking_cancelled"
	KindCheckedIn        Kind = "checked_in"
	KindCheckedOut       Kind = "checked_out"
)

var subjects = map[Kind]string{
	KindBookingReceived:  events.BookingCreated,
	KindBookingApproved:  events.BookingApproved,
	KindBookingRejected:  events.BookingRejected,
	KindBookingCancelled: events.BookingCancelled,
	KindCheckedIn:        events.BookingCheckedIn,
	KindCheckedOut:       events.BookingCheckedOut,
}

type Job struct {
	Kind      Kind
	Booking   domain.Booking
	CondoName string
	QRCode    string
	Reason    string
	RequestID string
}

type Dispatcher struct {
	jobs        chan Job
	mailer      mailer.Service
	events      events.Publisher
	renderQR    func(string) ([]byte, error)
	workers     int
	sendTimeout time.Duration

	dropped atomic.Int64
	sent    atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(m mailer.Service, pub events.Publisher, cfg config.NotifyConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Dispatcher{
		jobs:        make(chan Job, cfg.QueueSize),
		mailer:      m,
		events:      pub,
		renderQR:    RenderQR,
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
	}
}

// Enqueue never blocks. A full queue drops the job and reports false.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) bool {
	if job.RequestID == "" {
		if id, ok := ctx.Value(logger.RequestIDKey).(string); ok {
			job.RequestID = id
		}
	}
	select {
	case d.jobs <- job:
		return true
	default:
		d.dropped.Add(1)
		logger.WarnContext(ctx, "Notification queue full, dropping job",
			"kind", job.Kind, "booking_id", job.Booking.ID)
		return false
	}
}

// Run starts the workers and blocks until ctx is done. Jobs already queued
// at shutdown are still delivered.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	logger.Info("Notification dispatcher started", "workers", d.workers, "queue_size", cap(d.jobs))
	wg.Wait()
	logger.Info("Notification dispatcher stopped",
		"sent", d.sent.Load(), "failed", d.failed.Load(), "dropped", d.dropped.Load())
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case job := <-d.jobs:
			d.handle(job)
		case <-ctx.Done():
			for {
				select {
				case job := <-d.jobs:
					d.handle(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(job Job) {
	ctx := context.WithValue(context.Background(), logger.BookingIDKey, job.Booking.ID)
	if job.RequestID != "" {
		ctx = context.WithValue(ctx, logger.RequestIDKey, job.RequestID)
	}
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			logger.ErrorContext(ctx, "Notification job panicked", "kind", job.Kind, "panic", r)
		}
	}()

	d.sendEmail(ctx, job)
	d.publish(ctx, job)
}

func (d *Dispatcher) sendEmail(ctx context.Context, job Job) {
	if job.Booking.Email == "" {
		return
	}
	var qr []byte
	if job.Kind == KindBookingApproved {
		img, err := d.renderQR(job.QRCode)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to render QR code", "error", err)
		}
		qr = img
	}
	msg := buildMessage(job, qr)
	if msg == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	id, err := d.mailer.Send(sendCtx, msg)
	if err != nil {
		d.failed.Add(1)
		logger.ErrorContext(ctx, "Failed to send notification email", "kind", job.Kind, "error", err)
		return
	}
	d.sent.Add(1)
	logger.InfoContext(ctx, "Notification email sent", "kind", job.Kind, "message_id", id)
}

func (d *Dispatcher) publish(ctx context.Context, job Job) {
	subject, ok := subjects[job.Kind]
	if !ok {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	evt := events.BookingEvent{
		BookingID:     job.Booking.ID,
		CondoID:       job.Booking.CondoID,
		Status:        string(job.Booking.Status),
		GuestEmail:    job.Booking.Email,
		StartDateTime: job.Booking.StartDateTime,
		EndDateTime:   job.Booking.EndDateTime,
		Reason:        job.Reason,
		OccurredAt:    time.Now().UTC(),
	}
	if err := d.events.Publish(pubCtx, subject, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking event", "subject", subject, "error", err)
	}
}

// Stats reports delivery counters.
func (d *Dispatcher) Stats() (sent, failed, dropped int64) {
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}
