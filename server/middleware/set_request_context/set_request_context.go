// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"

	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/server/middleware"
	"codeberg.org/proxima/proxima/server/request_context"
	"codeberg.org/proxima/proxima/server/utils"
)

// WithRequestContext returns a middleware that resolves the visitor's session
// from the cookieName cookie and attaches a RequestContext to each request.
//
// The session cookie is (re)issued on every response, so a visitor with an
// unknown or missing token leaves with a valid one.
func WithRequestContext(store *session.Store, cookieName string) middleware.Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		var token string
		if cookie, err := r.Cookie(cookieName); err == nil {
			token = cookie.Value
		}

		sess, created := store.Resolve(token)

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   utils.IsConnectionSecure(r),
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(request_context.WithRequestContext(r.Context(), sess, created)))
	}
}
