// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/server/middleware"
	"codeberg.org/proxima/proxima/server/routes"
)

// canonicalPaths are the routes NormalizeURL redirects to when requested
// with a trailing slash.
var canonicalPaths = []string{
	"/image",
	"/api/setLang",
	"/api/addLang",
	"/api/saveTranslation",
	"/api/clearError",
	"/api/ping",
}

// DefineRoutes sets up all the routes for the application using our custom Router.
func (router *Router) DefineRoutes(h *routes.Handlers) {
	// /{$} matches only the root path
	router.HandleFunc("GET /{$}", middleware.CatchError(h.IndexPage))
	router.HandleFunc("GET /image", middleware.CatchError(h.Image))

	// Commands
	router.HandleFunc("POST /api/setLang", middleware.CatchError(h.SetLang))
	router.HandleFunc("POST /api/addLang", middleware.CatchError(h.AddLang))
	router.HandleFunc("POST /api/saveTranslation", middleware.CatchError(h.SaveTranslation))
	router.HandleFunc("POST /api/clearError", middleware.CatchError(h.ClearError))

	router.HandleFunc("GET /api/ping", middleware.CatchError(routes.Ping))

	if config.Global.Development.InDevelopment {
		registerDebugRoutes(router)
	}

	// Everything else, including wrong methods on known paths.
	router.HandleFunc("/", middleware.CatchError(routes.NotFound))
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	if !flightRecorder.Enabled() {
		if err := flightRecorder.Start(); err != nil {
			panic(err)
		}
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, r *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
