package domain

import "time"

type CondoSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	ImageURL string `json:"imageUrl"`
}

func (c *Condo) Summary() CondoSummary {
	return CondoSummary{ID: c.ID, Name: c.Name, Location: c.Location, ImageURL: c.ImageURL}
}

// OwnerBookingView is a booking as seen by the condo's owner.
type OwnerBookingView struct {
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
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	ApprovedAt      *time.Time    `json:"approvedAt,omitempty"`
	Condo           CondoSummary  `json:"condo"`
}

func NewOwnerBookingView(b *Booking, c *Condo) OwnerBookingView {
	return OwnerBookingView{
		ID:              b.ID,
		FullName:        b.FullName,
		Email:           b.Email,
		ContactNumber:   b.ContactNumber,
		GuestCount:      b.GuestCount,
		StartDateTime:   b.StartDateTime,
		EndDateTime:     b.EndDateTime,
		PaymentImageURL: b.PaymentImageURL,
		Notes:           b.Notes,
		Status:          b.Status,
		RejectionReason: b.RejectionReason,
		CreatedAt:       b.CreatedAt,
		ApprovedAt:      b.ApprovedAt,
		Condo:           c.Summary(),
	}
}

// FrontDeskBookingView carries the QR token and lifecycle stamps needed at the desk.
type FrontDeskBookingView struct {
	ID            int64         `json:"id"`
	FullName      string        `json:"fullName"`
	Email         string        `json:"email"`
	ContactNumber string        `json:"contactNumber"`
	GuestCount    int           `json:"guestCount"`
	StartDateTime time.Time     `json:"startDateTime"`
	EndDateTime   time.Time     `json:"endDateTime"`
	Notes         string        `json:"notes,omitempty"`
	Status        BookingStatus `json:"status"`
	QRCodeData    *string       `json:"qrCodeData,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	ApprovedAt    *time.Time    `json:"approvedAt,omitempty"`
	CheckedInAt   *time.Time    `json:"checkedInAt,omitempty"`
	CheckedOutAt  *time.Time    `json:"checkedOutAt,omitempty"`
	CondoID       int64         `json:"condoId"`
}

func NewFrontDeskBookingView(b *Booking) FrontDeskBookingView {
	return FrontDeskBookingView{
		ID:            b.ID,
		FullName:      b.FullName,
		Email:         b.Email,
		ContactNumber: b.ContactNumber,
		GuestCount:    b.GuestCount,
		StartDateTime: b.StartDateTime,
		EndDateTime:   b.EndDateTime,
		Notes:         b.Notes,
		Status:        b.Status,
		QRCodeData:    b.QRCodeData,
		CreatedAt:     b.CreatedAt,
		ApprovedAt:    b.ApprovedAt,
		CheckedInAt:   b.CheckedInAt,
		CheckedOutAt:  b.CheckedOutAt,
		CondoID:       b.CondoID,
	}
}

// PublicCondoView is what anonymous visitors see before booking.
type PublicCondoView struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Location      string      `json:"location"`
	Description   string      `json:"description"`
	Amenities     string      `json:"amenities"`
	MaxGuests     int         `json:"maxGuests"`
	PricePerNight float64     `json:"pricePerNight"`
	ImageURL      string      `json:"imageUrl"`
	Status        CondoStatus `json:"status"`
}

func NewPublicCondoView(c *Condo) PublicCondoView {
	return PublicCondoView{
		ID:            c.ID,
		Name:          c.Name,
		Location:      c.Location,
		Description:   c.Description,
		Amenities:     c.Amenities,
		MaxGuests:     c.MaxGuests,
		PricePerNight: c.PricePerNight,
		ImageURL:      c.ImageURL,
		Status:        c.Status,
	}
}

type OwnerDashboard struct {
	TotalCondos     int                 `json:"totalCondos"`
	TotalBookings   int                 `json:"totalBookings"`
	PendingBookings int                 `json:"pendingBookings"`
	ActiveBookings  int                 `json:"activeBookings"`
	TotalRevenue    float64             `json:"totalRevenue"`
	OccupancyRate   float64             `json:"occupancyRate"`
	CondosByStatus  map[CondoStatus]int `json:"condosByStatus"`
	RecentBookings  []OwnerBookingView  `json:"recentBookings"`
}

type CondoStats struct {
	Condo            CondoSummary          `json:"condo"`
	Status           CondoStatus           `json:"status"`
	PricePerNight    float64               `json:"pricePerNight"`
	BookingsByStatus map[BookingStatus]int `json:"bookingsByStatus"`
	Revenue          float64               `json:"revenue"`
	NightsBooked     int                   `json:"nightsBooked"`
}

type OwnerStats struct {
	Condos        []CondoStats `json:"condos"`
	TotalRevenue  float64      `json:"totalRevenue"`
	TotalBookings int          `json:"totalBookings"`
	OccupancyRate float64      `json:"occupancyRate"`
}

// FrontDeskDashboard groups approved stays by start day: Overdue started
// before today and was never checked in, ArrivalsToday starts today.
type FrontDeskDashboard struct {
	Condo           CondoSummary           `json:"condo"`
	CondoStatus     CondoStatus            `json:"condoStatus"`
	PendingBookings int                    `json:"pendingBookings"`
	ArrivalsToday   []FrontDeskBookingView `json:"arrivalsToday"`
	Overdue         []FrontDeskBookingView `json:"overdue"`
	InHouse         []FrontDeskBookingView `json:"inHouse"`
	Upcoming        []FrontDeskBookingView `json:"upcoming"`
}

type Availability struct {
	CondoID      int64          `json:"condoId"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	IsAvailable  bool           `json:"isAvailable"`
	BookedRanges []BookingRange `json:"bookedRanges"`
}
