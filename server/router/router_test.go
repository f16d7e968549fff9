// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/content/seed"
	"codeberg.org/proxima/proxima/core/provider"
	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/core/translations"
	"codeberg.org/proxima/proxima/server/router"
	"codeberg.org/proxima/proxima/server/routes"
)

func TestMain(m *testing.M) {
	config.Global.SetDefaults()
	config.Global.Basic.MaxBodySize = config.MinBodySize(config.Global.Content.MaxTranslationLength)

	os.Exit(m.Run())
}

// newServer returns a fully wired router over p.
func newServer(p content.Provider) (*router.Router, *session.Store) {
	store := session.NewStore()

	r := router.NewRouter()
	r.DefineRoutes(routes.New(p))
	r.RegisterMiddleware(store)

	return r, store
}

func newDemoServer() (*router.Router, *session.Store) {
	return newServer(provider.New(
		seed.Demo(),
		translations.NewMemory(),
		provider.StaticImages{seed.DemoImageID: seed.DemoImage()},
	))
}

// browser replays the session cookie like a real browser would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()

	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.Name == config.DefaultSessionCookie {
			b.cookie = c
		}
	}

	return rr
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	b.t.Helper()

	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return b.do(req)
}

// page fetches and parses the index page.
func (b *browser) page() (*goquery.Document, string) {
	b.t.Helper()

	rr := b.get("/")
	require.Equal(b.t, http.StatusOK, rr.Code)

	body := rr.Body.String()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(b.t, err)

	return doc, body
}

func assertSeeOther(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, location, rr.Header().Get("Location"))
}

func TestIndexPage(t *testing.T) {
	t.Parallel()

	handler, store := newDemoServer()
	b := &browser{t: t, handler: handler}

	rr := b.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, "private, no-cache", rr.Header().Get("Cache-Control"))

	require.NotNil(t, b.cookie, "first visit mints a session cookie")
	assert.True(t, b.cookie.HttpOnly)
	assert.Equal(t, 1, store.Len())

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)

	assert.Equal(t, 3, doc.Find("div[id^='m']").Length())
	assert.Equal(t, 0, doc.Find("script, style, link").Length())
	assert.Equal(t, 0, doc.Find("form[action='/api/saveTranslation']").Length(), "no language selected")
	assert.Equal(t, "/image?id=1", doc.Find("#m2 img").AttrOr("src", ""))

	// The visitor keeps the same session.
	b.get("/")
	assert.Equal(t, 1, store.Len())
}

func TestAddLanguageAndSaveTranslation(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	assertSeeOther(t, b.post("/api/addLang", url.Values{"lang": {"fr"}, "returnTo": {""}}), "/")

	doc, _ := b.page()
	assert.Equal(t, "fr", doc.Find("select[name='lang'] option[selected]").AttrOr("value", ""))
	assert.Equal(t, 3, doc.Find("form[action='/api/saveTranslation']").Length(), "every message lacks a fr translation")

	rr := b.post("/api/saveTranslation", url.Values{
		"messageId":   {"3"},
		"lang":        {"fr"},
		"returnTo":    {"m3"},
		"translation": {"Le troisième message."},
	})
	assertSeeOther(t, rr, "/#m3")

	doc, _ = b.page()
	assert.Equal(t, "Le troisième message.", doc.Find("#m3 td").Eq(1).Find("pre").Text())
	assert.Equal(t, 0, doc.Find("#m3 form").Length())
	assert.Equal(t, 2, doc.Find("form[action='/api/saveTranslation']").Length())
}

func TestTranslationIsSharedAcrossSessions(t *testing.T) {
	t.Parallel()

	handler, store := newDemoServer()
	alice := &browser{t: t, handler: handler}
	bob := &browser{t: t, handler: handler}

	alice.post("/api/addLang", url.Values{"lang": {"it"}})
	alice.post("/api/saveTranslation", url.Values{"messageId": {"2"}, "lang": {"it"}, "translation": {"Ciao"}})

	bob.post("/api/setLang", url.Values{"lang": {"it"}})

	doc, _ := bob.page()
	assert.Equal(t, "Ciao", doc.Find("#m2 td").Eq(1).Find("pre").Text())
	assert.Equal(t, 2, store.Len())

	// Bob never registered it, but the saved translation makes it a content language.
	assert.Equal(t, "it", doc.Find("select[name='lang'] option[selected]").AttrOr("value", ""))
}

func TestSetLangNormalisesBlank(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	assertSeeOther(t, b.post("/api/setLang", url.Values{"lang": {"de"}, "returnTo": {"m2"}}), "/#m2")

	doc, _ := b.page()
	assert.Equal(t, "Zu Zweig 3", doc.Find("#m1 b").First().Text())

	assertSeeOther(t, b.post("/api/setLang", url.Values{"lang": {"   "}}), "/")

	doc, _ = b.page()
	assert.Equal(t, content.NoneLang, doc.Find("select[name='lang'] option[selected]").AttrOr("value", ""))
	assert.Equal(t, 0, doc.Find("#m1 b").Length())
}

func TestErrorLifecycle(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	assertSeeOther(t, b.post("/api/addLang", url.Values{"lang": {""}, "returnTo": {"m2"}}), "/#m2")

	doc, body := b.page()
	assert.Equal(t, 1, doc.Find("form[action='/api/clearError']").Length())

	errAt := strings.Index(body, "<b>Error:</b> Bad language")
	require.Positive(t, errAt)
	assert.Less(t, strings.Index(body, "id='m1'"), errAt)
	assert.Less(t, errAt, strings.Index(body, "id='m2'"))

	// The error survives reloads until dismissed.
	_, body = b.page()
	assert.Contains(t, body, "Bad language")

	assertSeeOther(t, b.post("/api/clearError", url.Values{"returnTo": {""}}), "/#m2")

	_, body = b.page()
	assert.NotContains(t, body, "Error:")
}

func TestSaveTranslationRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		form     url.Values
		location string
		message  string
	}{
		{
			name:     "sentinel language",
			form:     url.Values{"messageId": {"1"}, "lang": {content.NoneLang}, "translation": {"x"}},
			location: "/#m1",
			message:  "Cannot save translation for &lt;None&gt;",
		},
		{
			name:     "too long",
			form:     url.Values{"messageId": {"2"}, "lang": {"fr"}, "translation": {strings.Repeat("a", content.MaxTranslationLength+1)}},
			location: "/#m2",
			message:  "Translation too long",
		},
		{
			name:     "bad id goes global",
			form:     url.Values{"messageId": {"abc"}, "lang": {"fr"}, "translation": {"x"}},
			location: "/",
			message:  "Bad messageId",
		},
		{
			name:     "unknown message targets returnTo",
			form:     url.Values{"messageId": {"99"}, "lang": {"fr"}, "translation": {"x"}, "returnTo": {"m3"}},
			location: "/#m3",
			message:  "Message 99 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler, _ := newDemoServer()
			b := &browser{t: t, handler: handler}

			assertSeeOther(t, b.post("/api/saveTranslation", tt.form), tt.location)

			_, body := b.page()
			assert.Contains(t, body, "<b>Error:</b> "+tt.message)
		})
	}
}

func TestSaveTranslationLengthLimitInCyrillic(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	assertSeeOther(t, b.post("/api/addLang", url.Values{"lang": {"ru"}}), "/")

	atLimit := strings.Repeat("Ж", content.MaxTranslationLength)
	assertSeeOther(t, b.post("/api/saveTranslation", url.Values{
		"messageId": {"2"}, "lang": {"ru"}, "translation": {atLimit},
	}), "/#m2")

	doc, body := b.page()
	assert.NotContains(t, body, "<b>Error:</b>")
	assert.Equal(t, atLimit, doc.Find("#m2 td").Eq(1).Find("pre").Text())
	assert.Equal(t, 0, doc.Find("#m2 form[action='/api/saveTranslation']").Length())

	for _, size := range []int{content.MaxTranslationLength + 1, 3 * content.MaxTranslationLength} {
		rr := b.post("/api/saveTranslation", url.Values{
			"messageId": {"3"}, "lang": {"ru"}, "translation": {strings.Repeat("Ж", size)},
		})
		assertSeeOther(t, rr, "/#m3")

		_, body := b.page()
		assert.Contains(t, body, "<b>Error:</b> Translation too long", "%d characters", size)
	}
}

func TestImage(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	rr := b.get("/image?id=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=86400", rr.Header().Get("Cache-Control"))
	assert.Equal(t, seed.DemoImage(), rr.Body.Bytes())

	for _, target := range []string{"/image", "/image?id=", "/image?id=abc", "/image?id=0", "/image?id=-1"} {
		rr = b.get(target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "Bad image id", rr.Body.String(), target)
	}

	rr = b.get("/image?id=42")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "private, no-cache", rr.Header().Get("Cache-Control"))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/nothing", nil),
		httptest.NewRequest(http.MethodGet, "/api/setLang", nil),
		httptest.NewRequest(http.MethodPost, "/", nil),
		httptest.NewRequest(http.MethodGet, "/m1", nil),
	} {
		rr := b.do(req)
		assert.Equal(t, http.StatusNotFound, rr.Code, req.URL.Path)
		assert.Equal(t, "Not found", rr.Body.String(), req.URL.Path)
		assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	}
}

func TestTrailingSlash(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	rr := b.get("/image/?id=1")
	assert.Equal(t, http.StatusPermanentRedirect, rr.Code)
	assert.Equal(t, "/image?id=1", rr.Header().Get("Location"))
	require.NotNil(t, b.cookie, "the redirect issues the session cookie")
}

func TestPing(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	rr := b.get("/api/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "ok "))
}

func TestMalformedForm(t *testing.T) {
	t.Parallel()

	handler, _ := newDemoServer()
	b := &browser{t: t, handler: handler}

	req := httptest.NewRequest(http.MethodPost, "/api/addLang", strings.NewReader("lang=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := b.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Bad form", rr.Body.String())
}

var errProviderDown = errors.New("provider is down")

// downProvider fails every call.
type downProvider struct{}

func (downProvider) ListMessages(context.Context) ([]content.Message, error) {
	return nil, errProviderDown
}

func (downProvider) GetImage(context.Context, int) ([]byte, error) {
	return nil, errProviderDown
}

func (downProvider) AddTranslation(context.Context, int, string, string) error {
	return errProviderDown
}

func TestProviderFailureIs500(t *testing.T) {
	t.Parallel()

	handler, _ := newServer(downProvider{})
	b := &browser{t: t, handler: handler}

	rr := b.get("/")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Server error: *fmt.wrapError: listing messages: provider is down", rr.Body.String())

	rr = b.get("/image?id=1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Server error: *errors.errorString: provider is down", rr.Body.String())

	rr = b.post("/api/saveTranslation", url.Values{"messageId": {"1"}, "lang": {"fr"}, "translation": {"x"}})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "provider is down")
}

// panicProvider panics while listing.
type panicProvider struct{ downProvider }

func (panicProvider) ListMessages(context.Context) ([]content.Message, error) {
	panic("index out of range")
}

func TestPanicIs500(t *testing.T) {
	t.Parallel()

	handler, _ := newServer(panicProvider{})
	b := &browser{t: t, handler: handler}

	rr := b.get("/")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Server error: string: index out of range", rr.Body.String())
}
