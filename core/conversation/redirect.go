// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package conversation

import "strings"

// maxReturnToLength bounds the anchor a form may ask to return to.
const maxReturnToLength = 32

// Redirect is the outcome of a command: where the browser goes next.
type Redirect struct {
	// Anchor is the page fragment to return to, or "" for the top of the page.
	Anchor string
}

// Location is the value of the Location header for r.
func (r Redirect) Location() string {
	if r.Anchor == "" {
		return "/"
	}

	return "/#" + r.Anchor
}

// NormalizeReturnTo turns a submitted returnTo value into a safe anchor.
//
// Surrounding whitespace is dropped. The result is "" when the value is
// blank, longer than maxReturnToLength, or contains anything other than
// ASCII letters, digits, '_' and '-'.
func NormalizeReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxReturnToLength {
		return ""
	}

	for i := range len(raw) {
		if !isAnchorByte(raw[i]) {
			return ""
		}
	}

	return raw
}

func isAnchorByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	default:
		return false
	}
}
