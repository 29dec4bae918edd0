package handlers

import (
	"net/http"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/middleware"
	"github.com/diagnosis/condo-bookings/internal/http/response"
)

// GET /dashboard/owner
func (h *Handlers) ownerDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.queries.OwnerDashboard(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, d)
}

// GET /dashboard/owner/stats
func (h *Handlers) ownerStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.queries.OwnerStats(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, s)
}

// GET /dashboard/frontdesk
func (h *Handlers) frontDeskDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.queries.FrontDeskDashboard(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, d)
}

// GET /dashboard/availability/{condoId}?startDate=&endDate=
func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "condoId")
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("startDate") == "" || q.Get("endDate") == "" {
		response.BadRequest(w, r, "startDate and endDate are required")
		return
	}
	start, err := domain.ParseInstant(q.Get("startDate"))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	end, err := domain.ParseInstant(q.Get("endDate"))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	a, err := h.queries.Availability(r.Context(), id, start, end)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, a)
}
