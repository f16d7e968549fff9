// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import "net/http"

// LimitRequestBody caps request bodies at limit bytes. Reading past the
// limit fails with *http.MaxBytesError. A non-positive limit disables the cap.
func LimitRequestBody(limit int64) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		if limit > 0 && r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		next.ServeHTTP(w, r)
	}
}
