// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/server/middleware"
	"codeberg.org/proxima/proxima/server/request_context"
)

const cookieName = "SID"

// serve runs one request through the middleware, returning the context the
// handler saw and the recorded response.
func serve(t *testing.T, store *session.Store, req *http.Request) (*request_context.RequestContext, *httptest.ResponseRecorder) {
	t.Helper()

	var seen *request_context.RequestContext

	handler := middleware.Wrap(WithRequestContext(store, cookieName), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request_context.FromRequest(r)

		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.NotNil(t, seen, "next handler must be called")

	return seen, rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rr.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}

	t.Fatalf("no %s cookie in response", cookieName)

	return nil
}

func TestWithRequestContext_NewVisitor(t *testing.T) {
	t.Parallel()

	store := session.NewStore()

	ctx, rr := serve(t, store, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, ctx.Session)
	assert.True(t, ctx.SessionCreated)
	assert.NotEmpty(t, ctx.RequestID)
	assert.Equal(t, http.StatusOK, ctx.StatusCode)
	assert.NoError(t, ctx.RequestError)

	cookie := sessionCookie(t, rr)
	assert.Equal(t, ctx.Session.ID(), cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "plain HTTP from a public address is not secure")
	assert.Equal(t, 1, store.Len())
}

func TestWithRequestContext_ReturningVisitor(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	first, _ := serve(t, store, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: first.Session.ID()})

	second, rr := serve(t, store, req)

	assert.Same(t, first.Session, second.Session)
	assert.False(t, second.SessionCreated)
	assert.Equal(t, first.Session.ID(), sessionCookie(t, rr).Value, "cookie is reissued on every response")
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, 1, store.Len())
}

func TestWithRequestContext_UnknownTokenIsReplaced(t *testing.T) {
	t.Parallel()

	store := session.NewStore()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "forged"})

	ctx, rr := serve(t, store, req)

	assert.True(t, ctx.SessionCreated)
	assert.NotEqual(t, "forged", ctx.Session.ID())
	assert.Equal(t, ctx.Session.ID(), sessionCookie(t, rr).Value)

	_, ok := store.Lookup("forged")
	assert.False(t, ok)
}

func TestWithRequestContext_SecureBehindTrustedProxy(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("X-Forwarded-Proto", "https")

	_, rr := serve(t, session.NewStore(), req)

	assert.True(t, sessionCookie(t, rr).Secure)
}

func TestWithRequestContext_PreservesRequestData(t *testing.T) {
	t.Parallel()

	var method, path string

	handler := middleware.Wrap(WithRequestContext(session.NewStore(), cookieName), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/setLang", nil))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/setLang", path)
}
