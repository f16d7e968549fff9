// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	"codeberg.org/proxima/proxima/config"
)

var (
	// baseHeaders defines the default headers to be set in responses.
	//
	// Proxima-Version and Proxima-Revision are added dynamically in SetResponseHeaders.
	//
	// NOTE: we intentionally don't set CORP or HSTS headers.
	baseHeaders = http.Header{
		"Referrer-Policy":         {"no-referrer"},
		"X-Frame-Options":         {"DENY"},
		"X-Content-Type-Options":  {"nosniff"},
		"Permissions-Policy":      {strings.Join(defaultPermissionsPolicy, ", ")},
		"Content-Security-Policy": {strings.Join(contentSecurityPolicy, "; ") + ";"},
	}

	// contentSecurityPolicy forbids scripts and styles outright. Pages only
	// need same-origin images and same-origin form targets.
	contentSecurityPolicy = []string{
		"default-src 'none'",
		"img-src 'self'",
		"form-action 'self'",
		"base-uri 'none'",
		"frame-ancestors 'none'",
	}

	// defaultPermissionsPolicy defines the default Permissions-Policy header.
	defaultPermissionsPolicy = []string{
		"accelerometer=()",
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"gyroscope=()",
		"magnetometer=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}
)

// SetResponseHeaders adds default headers to HTTP responses.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment {
		invalidateCacheInDevelopment(headers)
	}

	setCacheControl(headers)

	headers.Set("Proxima-Version", config.BuildVersion)
	headers.Set("Proxima-Revision", config.Global.Build.Revision())

	next.ServeHTTP(w, r)
}

// for `invalidateCacheInDevelopment`
var devCacheCleared atomic.Bool

// clear cache in development
func invalidateCacheInDevelopment(headers http.Header) {
	if devCacheCleared.CompareAndSwap(false, true) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}
}

// setCacheControl makes the browser revalidate every response. Pages reflect
// per-session state; the image handler overrides this on success.
func setCacheControl(headers http.Header) {
	headers.Set("Cache-Control", "private, no-cache")
}
