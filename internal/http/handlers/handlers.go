package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/response"
	"github.com/diagnosis/condo-bookings/internal/service"
)

const (
	maxJSONBody    = 64 << 10
	maxBookingBody = 6 << 20 // payment image data URLs ride in the body
)

type Handlers struct {
	bookings service.BookingService
	condos   service.CondoService
	queries  service.QueryService
	auth     service.AuthService
	validate *validator.Validate
}

func New(bookings service.BookingService, condos service.CondoService, queries service.QueryService, auth service.AuthService) *Handlers {
	return &Handlers{
		bookings: bookings,
		condos:   condos,
		queries:  queries,
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decode reads a JSON body into dst and runs its validate tags. It writes the
// error response itself and reports whether the handler may continue.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, r, http.StatusBadRequest, "Request body too large", domain.CodePayloadTooLarge)
			return false
		}
		response.BadRequest(w, r, "Invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.WriteValidation(w, r, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, r, "invalid "+name)
		return 0, false
	}
	return id, true
}
