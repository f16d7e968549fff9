// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"slices"
	"sync"

	"codeberg.org/proxima/proxima/server/middleware"
)

// Router is an http.ServeMux behind a chain of middleware.
//
// Routes and middleware are registered before the first request; the chain
// is composed once, on first use, and Use has no effect afterwards.
type Router struct {
	*http.ServeMux

	middlewares []middleware.Middleware

	once    sync.Once
	handler http.Handler
}

// NewRouter creates a new Router instance.
func NewRouter() *Router {
	return &Router{
		ServeMux: http.NewServeMux(),
	}
}

// Use appends m to the chain. The first middleware added is the outermost.
func (router *Router) Use(m middleware.Middleware) {
	router.middlewares = append(router.middlewares, m)
}

// ServeHTTP runs the request through every middleware and then the mux.
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.once.Do(router.compose)

	router.handler.ServeHTTP(w, r)
}

func (router *Router) compose() {
	var handler http.Handler = router.ServeMux

	for _, m := range slices.Backward(router.middlewares) {
		handler = middleware.Wrap(m, handler)
	}

	router.handler = handler
}
