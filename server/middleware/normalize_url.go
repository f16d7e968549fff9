// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// NormalizeURL returns a middleware that redirects requests for one of the
// canonical paths with a trailing slash added (e.g. "/image/") to the path
// without it, keeping the query string. Other paths pass through unchanged,
// so unknown routes still end up as 404s.
func NormalizeURL(canonical ...string) Middleware {
	paths := slices.Clone(canonical)

	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if target, ok := trimTrailingSlash(r.URL.Path); ok && slices.Contains(paths, target) {
			removeTrailingSlash(w, r, target)

			return
		}

		next.ServeHTTP(w, r)
	}
}

// trimTrailingSlash strips a single trailing slash from path (except root).
func trimTrailingSlash(path string) (string, bool) {
	if path == "/" || !strings.HasSuffix(path, "/") {
		return path, false
	}

	return strings.TrimSuffix(path, "/"), true
}

// removeTrailingSlash redirects to path, preserving the method and query.
func removeTrailingSlash(w http.ResponseWriter, r *http.Request, path string) {
	target := *r.URL
	target.Path = path
	target.RawPath = ""

	http.Redirect(w, r, target.RequestURI(), http.StatusPermanentRedirect)
}
