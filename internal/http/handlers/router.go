package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/middleware"
	mw "github.com/diagnosis/condo-bookings/pkg/middleware"
)

type RouterConfig struct {
	Tokens         middleware.TokenParser
	Limiter        middleware.Limiter  // nil disables throttling
	Proxies        *middleware.ProxyTrust
	Idempotency    mw.IdempotencyStore // nil disables replay
	AllowedOrigins []string
}

func (h *Handlers) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestContext("condo-bookings"))
	r.Use(mw.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	authn := middleware.RequireAuth(cfg.Tokens)
	owner := middleware.RequireRole(domain.RoleOwner)
	frontDesk := middleware.RequireRole(domain.RoleFrontDesk)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Limiter, "auth", cfg.Proxies))
		r.Post("/register", h.registerOwner)
		r.Post("/register-guest", h.registerGuest)
		r.Post("/login", h.login)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.With(
			middleware.OptionalAuth(cfg.Tokens),
			middleware.RateLimit(cfg.Limiter, "bookings", cfg.Proxies),
			mw.Idempotency(cfg.Idempotency),
		).Post("/create", h.createBooking)

		r.Group(func(r chi.Router) {
			r.Use(authn, owner)
			r.Get("/pending", h.pendingBookings)
			r.Get("/owner", h.ownerBookings)
			r.Post("/{id}/approve", h.approveBooking)
		})
		r.Group(func(r chi.Router) {
			r.Use(authn, frontDesk)
			r.Get("/frontdesk", h.frontDeskBookings)
			r.Post("/{id}/checkin", h.checkIn)
			r.Post("/{id}/checkout", h.checkOut)
		})
	})

	r.Route("/condos", func(r chi.Router) {
		r.Get("/public/{id}", h.publicCondo)

		r.Group(func(r chi.Router) {
			r.Use(authn, owner)
			r.Post("/create", h.createCondo)
			r.Get("/owner", h.ownerCondos)
			r.Put("/{id}", h.updateCondo)
			r.Patch("/{id}/status", h.updateCondoStatus)
			r.Delete("/{id}", h.deleteCondo)
		})
		r.With(authn, frontDesk).Get("/frontdesk", h.frontDeskCondo)
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/availability/{condoId}", h.availability)

		r.Group(func(r chi.Router) {
			r.Use(authn, owner)
			r.Get("/owner", h.ownerDashboard)
			r.Get("/owner/stats", h.ownerStats)
		})
		r.With(authn, frontDesk).Get("/frontdesk", h.frontDeskDashboard)
	})

	return r
}
