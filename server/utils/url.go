// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

const formMediaType = "application/x-www-form-urlencoded"

// ErrBodyTooLarge is returned by ParsePostForm when the body exceeds the
// limit set with http.MaxBytesReader.
var ErrBodyTooLarge = errors.New("request body too large")

// GetQueryParam retrieves the value of a query parameter by name.
//
// If the parameter is not present, it returns the provided default value or an empty string.
func GetQueryParam(r *http.Request, name string, defaultValue ...string) string {
	v := r.URL.Query().Get(name)
	if v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// ParsePostForm parses a URL-encoded request body and returns its fields.
//
// Query string parameters are not included. A body without a form content
// type yields an empty set of values.
//
// When the body exceeds the limit set with http.MaxBytesReader, the error
// wraps ErrBodyTooLarge and the returned values hold the fields that were
// complete before the limit was reached.
func ParsePostForm(r *http.Request) (url.Values, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return url.Values{}, nil
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return url.Values{}, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parsing content type: %w", err)
	}

	if mediaType != formMediaType {
		return url.Values{}, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return leadingFields(body), fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBytesErr.Limit)
		}

		return nil, fmt.Errorf("reading form: %w", err)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}

	return values, nil
}

// leadingFields decodes the fields of a truncated body, dropping the last
// one, which may have been cut short. Malformed pairs are skipped.
func leadingFields(truncated []byte) url.Values {
	i := bytes.LastIndexByte(truncated, '&')
	if i < 0 {
		return url.Values{}
	}

	values, _ := url.ParseQuery(string(truncated[:i]))

	return values
}
