// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// tokenBytes is the amount of entropy in a session token.
const tokenBytes = 18

// Make makes a short request ID with a 6 digit timestamp and 3 bytes of entropy.
func Make() string {
	entropy := [3]byte{'a', 'a', 'a'} // debug

	_, _ = rand.Read(entropy[:])

	return maketime(time.Now()) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

// Token makes an unguessable session token: 18 random bytes, base64url without padding.
func Token() string {
	var b [tokenBytes]byte

	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b[:])

	return base64.RawURLEncoding.EncodeToString(b[:])
}

func maketime(t time.Time) string {
	return t.Format("150405")
}
