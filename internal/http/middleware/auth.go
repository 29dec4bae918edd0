package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/condo-bookings/internal/domain"
	"github.com/diagnosis/condo-bookings/internal/http/response"
	"github.com/diagnosis/condo-bookings/pkg/auth"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

type ctxKey string

const ctxPrincipal ctxKey = "principal"

// TokenParser turns a bearer token into claims.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

func bearer(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return token, token != ""
}

func principalFromClaims(c *auth.Claims) domain.Principal {
	p := domain.Principal{UserID: c.Sub}
	for _, raw := range c.Roles {
		if role, ok := domain.ParseRole(raw); ok {
			p.Roles = append(p.Roles, role)
		}
	}
	return p
}

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), ctxPrincipal, p)
	ctx = context.WithValue(ctx, logger.UserIDKey, p.UserID)
	return r.WithContext(ctx)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				response.Unauthorized(w, r, "Missing or invalid authorization header")
				return
			}
			claims, err := parser.Parse(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "Rejected bearer token", "error", err)
				response.Unauthorized(w, r, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, withPrincipal(r, principalFromClaims(claims)))
		})
	}
}

// OptionalAuth attaches the principal when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearer(r); ok {
				if claims, err := parser.Parse(raw); err == nil {
					r = withPrincipal(r, principalFromClaims(claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p.Anonymous() {
				response.Unauthorized(w, r, "Authentication required")
				return
			}
			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, r, "Insufficient permissions")
		})
	}
}

// PrincipalFrom returns the caller, or the anonymous principal.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(ctxPrincipal).(domain.Principal)
	return p
}
