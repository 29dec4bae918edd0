package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Details []FieldDetail `json:"details,omitempty"`
}

type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const CodeRateLimit = "RATE_LIMIT_EXCEEDED"

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message, code string) {
	WriteJSON(w, r, statusCode, ErrorResponse{Error: message, Code: code})
}

// StatusOf maps a domain error kind to its HTTP status.
func StatusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError renders err. Anything that is not a classified domain
// error is logged and answered with a generic 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusOf(kind)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		WriteError(w, r, status, "An error occurred. Please try again later.", domain.CodeInternal)
		return
	}
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	WriteError(w, r, status, msg, domain.CodeOf(err))
}

// WriteValidation renders validator failures field by field.
func WriteValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		WriteError(w, r, http.StatusBadRequest, "Invalid request", domain.CodeInvalidInput)
		return
	}
	details := make([]FieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min", "gte":
			message = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "max", "lte":
			message = fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
		default:
			message = fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
		}
		details = append(details, FieldDetail{Field: fe.Field(), Message: message})
	}
	WriteJSON(w, r, http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Code:    domain.CodeInvalidInput,
		Details: details,
	})
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, message, domain.CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, message, domain.CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusForbidden, message, domain.CodeForbidden)
}

func RateLimit(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, message, CodeRateLimit)
}
