// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/server/middleware"
	"codeberg.org/proxima/proxima/server/middleware/limiter"
	"codeberg.org/proxima/proxima/server/middleware/set_request_context"
)

// RegisterMiddleware installs the middleware chain. Sessions are resolved
// from store.
func (router *Router) RegisterMiddleware(store *session.Store) {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)

	// resolves the session and issues its cookie, so redirects and 429s below carry it too
	router.Use(set_request_context.WithRequestContext(store, config.Global.Session.CookieName))

	router.Use(middleware.NormalizeURL(canonicalPaths...)) // handle trailing slashes
	router.Use(middleware.SetResponseHeaders)              // all responses need this
	router.Use(middleware.LimitRequestBody(config.Global.Basic.MaxBodySize))

	if config.Global.Limiter.Enabled {
		router.Use(limiter.FromConfig().Evaluate)
	}
}
