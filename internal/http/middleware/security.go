// Package middleware contains the Gin middleware shared by the forum's HTTP
// layer.
//
// This file provides SecurityHeaders. The forum is browser-facing and uses a
// session cookie, so besides the baseline hardening it can forbid framing
// through CSP and mark responses to signed-in users as uncacheable by shared
// caches. HSTS is opt-in and only sent over HTTPS.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultCSP suits the JSON and redirect responses this server produces.
const DefaultCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'"

// SecurityOptions configures SecurityHeaders.
//
//   - EnableHSTS: emit Strict-Transport-Security on HTTPS requests. Only
//     enable when traffic is HTTPS end-to-end.
//   - HSTSMaxAge: HSTS lifetime; 180 days when <= 0.
//   - NoStore: Cache-Control: no-store on every response.
//   - PrivateForUsers: Cache-Control: private, no-store on responses to
//     signed-in actors, whose pages embed per-user state.
//   - EnablePolicy: Permissions-Policy and X-Permitted-Cross-Domain-Policies.
//   - CSP: Content-Security-Policy value; empty disables the header.
type SecurityOptions struct {
	EnableHSTS      bool
	HSTSMaxAge      time.Duration
	NoStore         bool
	PrivateForUsers bool
	EnablePolicy    bool
	CSP             string
}

// SecurityHeaders returns the hardening middleware. It always sets
// X-Content-Type-Options: nosniff, X-Frame-Options: DENY and
// Referrer-Policy: same-origin, and exposes X-Request-ID to browser
// clients.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		// same-origin keeps the Referer needed to bounce back after login.
		h.Set("Referrer-Policy", "same-origin")

		if opt.CSP != "" {
			h.Set("Content-Security-Policy", opt.CSP)
		}
		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch {
		case opt.NoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case opt.PrivateForUsers && ActorFrom(c).Authenticated():
			h.Set("Cache-Control", "private, no-store")
			h.Add("Vary", "Cookie")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get(requestIDHeader); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS directly or via a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
