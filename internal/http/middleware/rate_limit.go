package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/diagnosis/condo-bookings/internal/http/response"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

// Limiter counts a hit against key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit throttles by client IP. A nil limiter disables it and limiter
// errors fail open. Forwarding headers are honoured only from proxies.
func RateLimit(limiter Limiter, scope string, proxies *ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), scope+":ip:"+proxies.ClientIP(r))
			if err != nil {
				logger.WarnContext(r.Context(), "Rate limiter unavailable", "error", err)
			}
			if !ok && err == nil {
				response.RateLimit(w, r, "Too many requests. Try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProxyTrust lists the reverse proxies allowed to report the client address
// through X-Forwarded-For and X-Real-IP.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust parses CIDRs or bare addresses. An empty list trusts no one.
func NewProxyTrust(entries []string) (*ProxyTrust, error) {
	p := &ProxyTrust{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			addr, err := netip.ParseAddr(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			p.prefixes = append(p.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		p.prefixes = append(p.prefixes, prefix.Masked())
	}
	return p, nil
}

func (p *ProxyTrust) trusts(raw string) bool {
	if p == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the peer address unless the peer is a trusted proxy; then the
// nearest untrusted hop in X-Forwarded-For wins, falling back to X-Real-IP.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !p.trusts(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !p.trusts(hop) {
				return hop
			}
		}
		return strings.TrimSpace(hops[0])
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}
