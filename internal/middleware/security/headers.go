// Package security hardens the JSON API: response headers, client address
// resolution behind proxies and probe detection.
package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds the headers stamped on every response.
type HeadersConfig struct {
	CSP                   string
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ReferrerPolicy        string
	CrossOriginResource   string
	// CacheControl applies to every response. Ledger data is personal, so
	// the default forbids intermediaries from storing it.
	CacheControl string
}

// DefaultHeadersConfig returns headers for an API that never serves markup.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.apply(w.Header(), r.TLS != nil)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) apply(headers http.Header, tls bool) {
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("X-Frame-Options", "DENY")
	if h.config.CSP != "" {
		headers.Set("Content-Security-Policy", h.config.CSP)
	}
	if h.config.ReferrerPolicy != "" {
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	}
	if h.config.CrossOriginResource != "" {
		headers.Set("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)
	}
	if h.config.CacheControl != "" {
		headers.Set("Cache-Control", h.config.CacheControl)
	}
	if tls && h.config.HSTSMaxAge > 0 {
		v := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", v)
	}
}
