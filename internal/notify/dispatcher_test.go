package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/platform/mailer"
	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Mocks ----------

type mockMailer struct {
	mu      sync.Mutex
	sent    []*mailer.Message
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, msg *mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return "mock-id", m.sendErr
}

func (m *mockMailer) messages() []*mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mailer.Message(nil), m.sent...)
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *mockPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

func booking() domain.Booking {
	return domain.Booking{
		ID: 7, CondoID: 3, FullName: "Ana Guest", Email: "ana@example.com",
		Status:        domain.BookingApproved,
		StartDateTime: time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC),
		EndDateTime:   time.Date(2025, 1, 12, 11, 0, 0, 0, time.UTC),
	}
}

// runAndStop enqueues jobs, runs the dispatcher and stops it once the queue drains.
func runAndStop(t *testing.T, d *Dispatcher, jobs ...Job) {
	t.Helper()
	for _, j := range jobs {
		require.True(t, d.Enqueue(context.Background(), j))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
}

func TestEnqueue_NeverBlocksWhenFull(t *testing.T) {
	d := NewDispatcher(&mockMailer{}, &mockPublisher{}, config.NotifyConfig{QueueSize: 1, Workers: 1})

	assert.True(t, d.Enqueue(context.Background(), Job{Kind: KindBookingReceived, Booking: booking()}))

	done := make(chan bool)
	go func() { done <- d.Enqueue(context.Background(), Job{Kind: KindBookingReceived, Booking: booking()}) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	_, _, dropped := d.Stats()
	assert.EqualValues(t, 1, dropped)
}

func TestDispatcher_ApprovalCarriesQRAttachment(t *testing.T) {
	m := &mockMailer{}
	p := &mockPublisher{}
	d := NewDispatcher(m, p, config.NotifyConfig{QueueSize: 4, Workers: 2, SendTimeout: time.Second})
	d.renderQR = func(token string) ([]byte, error) { return []byte("jpeg:" + token), nil }

	runAndStop(t, d, Job{Kind: KindBookingApproved, Booking: booking(), CondoName: "Sea View", QRCode: "CONDO-3-BOOKING-7-abc"})

	msgs := m.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Text, "CONDO-3-BOOKING-7-abc")
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, []byte("jpeg:CONDO-3-BOOKING-7-abc"), msgs[0].Attachments[0].Data)
	assert.Equal(t, []string{events.BookingApproved}, p.published())

	sent, failed, _ := d.Stats()
	assert.EqualValues(t, 1, sent)
	assert.Zero(t, failed)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	m := &mockMailer{sendErr: errors.New("smtp down")}
	p := &mockPublisher{err: errors.New("nats down")}
	d := NewDispatcher(m, p, config.NotifyConfig{QueueSize: 4, Workers: 1, SendTimeout: time.Second})
	d.renderQR = func(string) ([]byte, error) { return nil, errors.New("render failed") }

	runAndStop(t, d,
		Job{Kind: KindBookingApproved, Booking: booking(), CondoName: "Sea View", QRCode: "tok"},
		Job{Kind: KindBookingRejected, Booking: booking(), CondoName: "Sea View", Reason: "dates blocked"},
	)

	msgs := m.messages()
	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[0].Attachments, "approval still mailed without image")
	assert.Len(t, p.published(), 2)

	_, failed, _ := d.Stats()
	assert.EqualValues(t, 2, failed)
}

func TestBuildMessage_EscapesHTML(t *testing.T) {
	b := booking()
	b.FullName = "<script>x</script>"
	msg := buildMessage(Job{Kind: KindBookingRejected, Booking: b, CondoName: "A&B", Reason: "<b>no</b>"}, nil)

	require.NotNil(t, msg)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "A&amp;B")
	assert.Contains(t, msg.Text, "<b>no</b>")
	assert.Nil(t, buildMessage(Job{Kind: "unknown", Booking: b}, nil))
}

func TestRenderQR(t *testing.T) {
	img, err := RenderQR("CONDO-1-BOOKING-2-xyz")
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = RenderQR("")
	assert.Error(t, err)
}
