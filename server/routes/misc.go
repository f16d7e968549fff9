// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"time"

	"codeberg.org/proxima/proxima/server/utils"
)

// Ping answers health checks.
func Ping(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")

	return utils.WriteText(w, http.StatusOK, "ok %s", time.Now().UTC().Format(time.RFC3339))
}

// NotFound answers every path without a route.
func NotFound(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteText(w, http.StatusNotFound, "Not found")
}
