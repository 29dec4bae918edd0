package handlers

import (
	"net/http"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/middleware"
	"github.com/diagnosis/condo-bookings/internal/http/response"
)

type createBookingRequest struct {
	FullName        string `json:"fullName" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	ContactNumber   string `json:"contactNumber" validate:"required,max=32"`
	GuestCount      int    `json:"guestCount" validate:"min=1,max=10"`
	StartDateTime   string `json:"startDateTime" validate:"required"`
	EndDateTime     string `json:"endDateTime" validate:"required"`
	PaymentImageURL string `json:"paymentImageUrl"`
	Notes           string `json:"notes" validate:"max=2000"`
	CondoID         int64  `json:"condoId" validate:"gt=0"`
}

type createBookingResponse struct {
	BookingID     int64                `json:"bookingId"`
	Status        domain.BookingStatus `json:"status"`
	StartDateTime time.Time            `json:"startDateTime"`
	EndDateTime   time.Time            `json:"endDateTime"`
}

type approveRequest struct {
	IsApproved      *bool  `json:"isApproved" validate:"required"`
	RejectionReason string `json:"rejectionReason" validate:"max=1000"`
}

type checkInRequest struct {
	QRCodeData string `json:"qrCodeData" validate:"required"`
}

// POST /bookings/create
func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decode(w, r, &req, maxBookingBody) {
		return
	}
	start, err := domain.ParseInstant(req.StartDateTime)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	end, err := domain.ParseInstant(req.EndDateTime)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	in := domain.NewBooking{
		FullName:        req.FullName,
		Email:           req.Email,
		ContactNumber:   req.ContactNumber,
		GuestCount:      req.GuestCount,
		StartDateTime:   start,
		EndDateTime:     end,
		PaymentImageURL: req.PaymentImageURL,
		Notes:           req.Notes,
		CondoID:         req.CondoID,
	}
	if p := middleware.PrincipalFrom(r.Context()); p.HasRole(domain.RoleGuest) {
		guestID := p.UserID
		in.GuestUserID = &guestID
	}

	b, err := h.bookings.CreateBooking(r.Context(), in)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, createBookingResponse{
		BookingID:     b.ID,
		Status:        b.Status,
		StartDateTime: b.StartDateTime,
		EndDateTime:   b.EndDateTime,
	})
}

// GET /bookings/pending
func (h *Handlers) pendingBookings(w http.ResponseWriter, r *http.Request) {
	status := domain.BookingPendingApproval
	h.ownerBookingList(w, r, &status)
}

// GET /bookings/owner?status=
func (h *Handlers) ownerBookings(w http.ResponseWriter, r *http.Request) {
	var status *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, r, "invalid status")
			return
		}
		status = &st
	}
	h.ownerBookingList(w, r, status)
}

func (h *Handlers) ownerBookingList(w http.ResponseWriter, r *http.Request, status *domain.BookingStatus) {
	views, err := h.queries.OwnerBookings(r.Context(), middleware.PrincipalFrom(r.Context()), status)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, views)
}

// GET /bookings/frontdesk
func (h *Handlers) frontDeskBookings(w http.ResponseWriter, r *http.Request) {
	views, err := h.queries.FrontDeskBookings(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, views)
}

// POST /bookings/{id}/approve
func (h *Handlers) approveBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req approveRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}

	res, err := h.bookings.ApproveBooking(r.Context(), middleware.PrincipalFrom(r.Context()), id, domain.Decision{
		Approve:         *req.IsApproved,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, res)
}

// POST /bookings/{id}/checkin
func (h *Handlers) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req checkInRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}

	b, err := h.bookings.CheckIn(r.Context(), middleware.PrincipalFrom(r.Context()), id, req.QRCodeData)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, domain.NewFrontDeskBookingView(b))
}

// POST /bookings/{id}/checkout
func (h *Handlers) checkOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.CheckOut(r.Context(), middleware.PrincipalFrom(r.Context()), id)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, domain.NewFrontDeskBookingView(b))
}
