// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes binds the conversation state machine to net/http.

Every handler returns an error; middleware.CatchError turns unexpected ones
into 500 responses. Client mistakes are answered directly with a 4xx status.
*/
package routes

import (
	"errors"
	"net/http"

	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/conversation"
	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/server/request_context"
)

// errNoSession means the request bypassed the session middleware.
var errNoSession = errors.New("request has no session")

// Handlers serves the Proxima routes from one content provider.
type Handlers struct {
	Provider content.Provider
}

// New returns handlers backed by p.
func New(p content.Provider) *Handlers {
	return &Handlers{Provider: p}
}

func sessionFrom(r *http.Request) (*session.Session, error) {
	sess := request_context.FromRequest(r).Session
	if sess == nil {
		return nil, errNoSession
	}

	return sess, nil
}

// seeOther sends the browser to the redirect's location with 303 See Other,
// so that a reload never resubmits the form.
func seeOther(w http.ResponseWriter, r *http.Request, redirect conversation.Redirect) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, redirect.Location(), http.StatusSeeOther)
}
