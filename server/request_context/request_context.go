// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package request_context holds the per-request state shared by the middleware
chain and the handlers: the request id, the visitor's session and the
outcome recorded by middleware.CatchError.

It lives apart from the middleware package so handlers can use it without an
import cycle.
*/
package request_context

import (
	"context"
	"net/http"

	"codeberg.org/proxima/proxima/core/idgen"
	"codeberg.org/proxima/proxima/core/session"
)

// RequestContext is mutable: CatchError fills in the outcome after the
// handler returns.
type RequestContext struct {
	RequestID string

	// Session is resolved from the session cookie before any handler runs.
	Session *session.Session
	// SessionCreated is set when Session was minted for this request.
	SessionCreated bool

	// RequestError is what the handler returned or panicked with.
	RequestError error
	StatusCode   int
}

type contextKey struct{}

// WithRequestContext returns ctx carrying a fresh RequestContext for sess.
func WithRequestContext(ctx context.Context, sess *session.Session, created bool) context.Context {
	return context.WithValue(ctx, contextKey{}, &RequestContext{
		RequestID:      idgen.Make(),
		Session:        sess,
		SessionCreated: created,
		StatusCode:     http.StatusOK,
	})
}

// FromContext returns the RequestContext carried by ctx, or a detached empty
// one (no session) when there is none.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(contextKey{}).(*RequestContext); ok {
		return rc
	}

	return &RequestContext{}
}

// FromRequest is FromContext(r.Context()).
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
