package security

import (
	"net/http"
	"strconv"
)

// defaultCSP permits inline data: images so stored company logos render in API consumers.
const defaultCSP = "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'"

// Headers configures common security headers for HTTP responses.
type Headers struct {
	Enable     bool
	EnableHSTS bool
	HSTSMaxAge int
	// ContentSecurityPolicy overrides defaultCSP when non-empty.
	ContentSecurityPolicy string
}

// Middleware attaches standard security headers to each response.
func (h Headers) Middleware(next http.Handler) http.Handler {
	csp := h.ContentSecurityPolicy
	if csp == "" {
		csp = defaultCSP
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Enable {
			next.ServeHTTP(w, r)
			return
		}
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", csp)
		headers.Set("Cache-Control", "no-store")
		if h.EnableHSTS && r.TLS != nil {
			maxAge := h.HSTSMaxAge
			if maxAge <= 0 {
				maxAge = 31536000
			}
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(maxAge))
		}
		next.ServeHTTP(w, r)
	})
}
