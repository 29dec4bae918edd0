package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/response"
	"github.com/diagnosis/condo-bookings/internal/service"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=32"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	Roles     []domain.Role `json:"roles"`
	ExpiresIn int64         `json:"expiresIn"`
	User      domain.User   `json:"user"`
}

// POST /auth/register
func (h *Handlers) registerOwner(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.auth.RegisterOwner)
}

// POST /auth/register-guest
func (h *Handlers) registerGuest(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.auth.RegisterGuest)
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request, create func(context.Context, service.Registration) (*domain.User, error)) {
	var req registerRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}
	u, err := create(r.Context(), service.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusCreated, u)
}

// POST /auth/login
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req, maxJSONBody) {
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		response.BadRequest(w, r, "username or email is required")
		return
	}

	s, err := h.auth.Login(r.Context(), login, req.Password)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, r, http.StatusOK, loginResponse{
		Token:     s.Token,
		Roles:     s.User.Roles,
		ExpiresIn: int64(time.Until(s.ExpiresAt).Seconds()),
		User:      s.User,
	})
}
