package domain

import "time"

type BookingStatus string

const (
	BookingPendingApproval BookingStatus = "PendingApproval"
	BookingApproved        BookingStatus = "Approved"
	BookingRejected        BookingStatus = "Rejected"
	BookingCancelled       BookingStatus = "Cancelled"
	BookingCheckedIn       BookingStatus = "CheckedIn"
	BookingCheckedOut      BookingStatus = "CheckedOut"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPendingApproval, BookingApproved, BookingRejected,
		BookingCancelled, BookingCheckedIn, BookingCheckedOut:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

var transitions = map[BookingStatus][]BookingStatus{
	BookingPendingApproval: {BookingApproved, BookingRejected, BookingCancelled},
	BookingApproved:        {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn:       {BookingCheckedOut},
}

// CanTransition is the only gate for booking status writes.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsActive reports whether a booking in s blocks its date range.
func (s BookingStatus) IsActive() bool {
	return s != BookingRejected && s != BookingCancelled
}

// InactiveStatuses lists the statuses ignored by availability checks.
var InactiveStatuses = []BookingStatus{BookingRejected, BookingCancelled}

type Booking struct {
	ID              int64         `json:"id"`
	FullName        string        `json:"fullName"`
	Email           string        `json:"email"`
	ContactNumber   string        `json:"contactNumber"`
	GuestCount      int           `json:"guestCount"`
	StartDateTime   time.Time     `json:"startDateTime"`
	EndDateTime     time.Time     `json:"endDateTime"`
	PaymentImageURL string        `json:"paymentImageUrl,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Status          BookingStatus `json:"status"`
	QRCodeData      *string       `json:"qrCodeData,omitempty"`

	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy      *int64     `json:"approvedBy,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	CheckedInAt     *time.Time `json:"checkedInAt,omitempty"`
	CheckedOutAt    *time.Time `json:"checkedOutAt,omitempty"`

	CondoID     int64  `json:"condoId"`
	GuestUserID *int64 `json:"guestUserId,omitempty"`
}

// Overlaps reports whether [s1,e1) and [s2,e2) share any instant.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// WholeDays is the number of full 24h periods between start and end, truncated.
func WholeDays(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

// Revenue sums wholeDays × nightly rate over checked-out bookings.
func Revenue(bookings []Booking, pricePerNight float64) float64 {
	var total float64
	for _, b := range bookings {
		if b.Status != BookingCheckedOut {
			continue
		}
		total += float64(WholeDays(b.StartDateTime, b.EndDateTime)) * pricePerNight
	}
	return total
}

// NewBooking is the validated input for creating a booking.
type NewBooking struct {
	FullName        string
	Email           string
	ContactNumber   string
	GuestCount      int
	StartDateTime   time.Time
	EndDateTime     time.Time
	PaymentImageURL string
	Notes           string
	CondoID         int64
	GuestUserID     *int64
}

// BookingRange is a blocked period on a condo's calendar, without guest data.
type BookingRange struct {
	StartDateTime time.Time     `json:"startDateTime"`
	EndDateTime   time.Time     `json:"endDateTime"`
	Status        BookingStatus `json:"status"`
}

// Decision is an owner's verdict on a pending booking.
type Decision struct {
	Approve         bool
	RejectionReason string
}

type ApprovalResult struct {
	BookingID  int64         `json:"bookingId"`
	Status     BookingStatus `json:"status"`
	QRCodeData string        `json:"qrCodeData,omitempty"`
}
