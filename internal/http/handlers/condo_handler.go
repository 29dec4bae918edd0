package handlers

import (
	"net/http"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/middleware"
	"github.com/diagnosis/condo-bookings/internal/http/response"
)

type createCondoRequest struct {
	Name              string  `json:"name" validate:"required,max=200"`
	Location          string  `json:"location" validate:"required,max=200"`
	Description       string  `json:"description" validate:"max=5000"`
	Amenities         string  `json:"amenities" validate:"max=2000"`
	MaxGuests         int     `json:"maxGuests" validate:"min=1"`
	PricePerNight     float64 `json:"pricePerNight" validate:"gte=0"`
	ImageURL          string  `json:"imageUrl" validate:"max=2048"`
	FrontDeskUsername string  `json:"frontDeskUsername" validate:"required,min=3,max=50"`
	FrontDeskPassword string  `json:"frontDeskPassword" validate:"required,min=8,max=128"`
	FrontDeskFullName string  `json:"frontDeskFullName" validate:"max=200"`
}

// Fields are optional; invalid values are ignored by the service.
type updateCondoRequest struct {
	Name          *string  `json:"name"`
	Location      *string  `json:"location"`
	Description   *string  `json:"description"`
	Amenities     *string  `json:"amenities"`
	MaxGuests     *int     `json:"maxGuests"`
	PricePerNight *float64 `json:"pricePerNight"`
	ImageURL      *string  `json:"imageUrl"`
}

type condoStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Available Maintenance Unavailable"`
}

// POST /condos/create
func (h *Handlers) createCondo(w http.ResponseWriter, r *http.Request) {
	var req createCondoRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}
	c, err := h.condos.CreateCondo(r.Context(), middleware.PrincipalFrom(r.Context()), domain.NewCondo{
		Name:              req.Name,
		Location:          req.Location,
		Description:       req.Description,
		Amenities:         req.Amenities,
		MaxGuests:         req.MaxGuests,
		PricePerNight:     req.PricePerNight,
		ImageURL:          req.ImageURL,
		FrontDeskUsername: req.FrontDeskUsername,
		FrontDeskPassword: req.FrontDeskPassword,
		FrontDeskFullName: req.FrontDeskFullName,
	})
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusCreated, c)
}

// GET /condos/owner
func (h *Handlers) ownerCondos(w http.ResponseWriter, r *http.Request) {
	condos, err := h.condos.ListOwnerCondos(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, condos)
}

// GET /condos/frontdesk
func (h *Handlers) frontDeskCondo(w http.ResponseWriter, r *http.Request) {
	c, err := h.condos.GetFrontDeskCondo(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, c)
}

// GET /condos/public/{id}
func (h *Handlers) publicCondo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.condos.GetPublicCondo(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, view)
}

// PUT /condos/{id}
func (h *Handlers) updateCondo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateCondoRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}
	c, err := h.condos.UpdateCondo(r.Context(), middleware.PrincipalFrom(r.Context()), id, domain.CondoPatch{
		Name:          req.Name,
		Location:      req.Location,
		Description:   req.Description,
		Amenities:     req.Amenities,
		MaxGuests:     req.MaxGuests,
		PricePerNight: req.PricePerNight,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, c)
}

// PATCH /condos/{id}/status
func (h *Handlers) updateCondoStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req condoStatusRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}
	c, err := h.condos.UpdateCondoStatus(r.Context(), middleware.PrincipalFrom(r.Context()), id, domain.CondoStatus(req.Status))
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, c)
}

// DELETE /condos/{id}
func (h *Handlers) deleteCondo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.condos.DeleteCondo(r.Context(), middleware.PrincipalFrom(r.Context()), id); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
