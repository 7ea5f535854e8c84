// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, which attaches a conservative set of
// response headers for a JSON API running behind a reverse proxy.
//
// Notes:
//   - no Content-Security-Policy is sent, since API responses are JSON
//   - HSTS is opt-in and only emitted when the request actually arrived over
//     HTTPS, directly or via X-Forwarded-Proto
//   - header values are computed once when the middleware is built
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
//
// EnableHSTS emits Strict-Transport-Security on HTTPS requests. Set it only
// when traffic is HTTPS end-to-end, including between the proxy and this
// process.
//
// HSTSMaxAge is the HSTS lifetime; zero or negative means 180 days.
//
// NoStore adds Cache-Control: no-store together with the legacy Pragma and
// Expires headers. Leave it off for routes that rely on ETag revalidation,
// such as the handoff list.
//
// EnablePolicy sends Permissions-Policy and X-Permitted-Cross-Domain-Policies.
// Only browsers act on them.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns a Gin middleware that sets security headers before
// the handler chain runs.
//
// Behavior:
//   - always sets X-Content-Type-Options: nosniff, X-Frame-Options: DENY
//     and Referrer-Policy: no-referrer
//   - adds the optional groups selected in opt
//   - when a request id is already on the response, appends X-Request-ID to
//     Access-Control-Expose-Headers so browser clients can read it
//
// Mount it after RequestID so the id header is present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int64(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int64((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.FormatInt(maxAge, 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			const hdr = "Access-Control-Expose-Headers"
			switch cur := h.Get(hdr); {
			case cur == "":
				h.Set(hdr, requestIDHeader)
			case !strings.Contains(cur, requestIDHeader):
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}
		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
