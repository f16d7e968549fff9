// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/proxima/proxima/server/utils"
)

func TestGetQueryParam(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/image?id=4&empty=", nil)

	assert.Equal(t, "4", utils.GetQueryParam(r, "id"))
	assert.Equal(t, "", utils.GetQueryParam(r, "empty"))
	assert.Equal(t, "fallback", utils.GetQueryParam(r, "missing", "fallback"))
}

func postForm(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/addLang?lang=fromquery", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return r
}

func TestParsePostForm(t *testing.T) {
	t.Parallel()

	form, err := utils.ParsePostForm(postForm("lang=fr&returnTo=m2&text=a%20b%2Bc%26d"))
	require.NoError(t, err)

	assert.Equal(t, "fr", form.Get("lang"), "the body wins over the query string")
	assert.Equal(t, "m2", form.Get("returnTo"))
	assert.Equal(t, "a b+c&d", form.Get("text"))
	assert.Equal(t, "", form.Get("missing"))
}

func TestParsePostFormUTF8(t *testing.T) {
	t.Parallel()

	form, err := utils.ParsePostForm(postForm("translation=%CE%93%CE%B5%CE%B9%CE%AC"))
	require.NoError(t, err)
	assert.Equal(t, "Γειά", form.Get("translation"))
}

func TestParsePostFormMalformed(t *testing.T) {
	t.Parallel()

	_, err := utils.ParsePostForm(postForm("lang=%zz"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrBodyTooLarge)
}

func TestParsePostFormTooLarge(t *testing.T) {
	t.Parallel()

	r := postForm("translation=" + strings.Repeat("a", 64))
	r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 16)

	_, err := utils.ParsePostForm(r)
	require.ErrorIs(t, err, utils.ErrBodyTooLarge)
}

func TestParsePostFormTooLargeKeepsLeadingFields(t *testing.T) {
	t.Parallel()

	r := postForm("messageId=7&returnTo=m7&translation=" + strings.Repeat("%D0%96", 64))
	r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 48)

	form, err := utils.ParsePostForm(r)
	require.ErrorIs(t, err, utils.ErrBodyTooLarge)

	assert.Equal(t, "7", form.Get("messageId"))
	assert.Equal(t, "m7", form.Get("returnTo"))
	assert.False(t, form.Has("translation"), "the truncated field is dropped")
}

func TestParsePostFormIgnoresOtherContentTypes(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/api/addLang", strings.NewReader(`{"lang":"fr"}`))
	r.Header.Set("Content-Type", "application/json")

	form, err := utils.ParsePostForm(r)
	require.NoError(t, err)
	assert.Empty(t, form)
}

func TestIsConnectionSecure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		proto      string
		tls        bool
		want       bool
	}{
		{"plain public", "203.0.113.9:5000", "", false, false},
		{"direct tls", "203.0.113.9:5000", "", true, true},
		{"private proxy https", "10.1.2.3:5000", "https", false, true},
		{"loopback proxy https", "127.0.0.1:5000", "https", false, true},
		{"public proxy https is not trusted", "203.0.113.9:5000", "https", false, false},
		{"private proxy http", "10.1.2.3:5000", "http", false, false},
		{"garbage address", "nonsense", "https", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr

			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}

			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			} else {
				r.TLS = nil
			}

			assert.Equal(t, tt.want, utils.IsConnectionSecure(r))
		})
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, utils.WriteText(rec, http.StatusBadRequest, "Bad %s", "image id"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Bad image id", rec.Body.String())
}

func TestPeerAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remoteAddr string
		want       string
		ok         bool
	}{
		{"203.0.113.9:5000", "203.0.113.9", true},
		{"[2001:db8::1]:443", "2001:db8::1", true},
		{"[::ffff:10.0.0.1]:80", "10.0.0.1", true},
		{"192.0.2.1", "192.0.2.1", true},
		{"@", "invalid IP", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remoteAddr

		addr, ok := utils.PeerAddr(r)
		assert.Equal(t, tt.ok, ok, tt.remoteAddr)
		assert.Equal(t, tt.want, addr.String(), tt.remoteAddr)
	}
}
