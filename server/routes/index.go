// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"codeberg.org/proxima/proxima/core/conversation"
	"codeberg.org/proxima/proxima/views"
)

// IndexPage renders the conversation for the visitor's session.
func (h *Handlers) IndexPage(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	page, err := conversation.BuildPage(r.Context(), h.Provider, sess.Snapshot())
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	return views.Page(page).Render(r.Context(), w)
}
