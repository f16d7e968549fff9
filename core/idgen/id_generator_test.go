// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package idgen

import (
	"encoding/base64"
	"regexp"
	"strings"
	"testing"
	"time"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{24}$`)

func TestGenerate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	if strings.ReplaceAll(now.Format("15:04:05"), ":", "") != maketime(now) {
		t.Error("time part incorrect")
	}

	if id := Make(); len(id) != 10 {
		t.Errorf("expected a 10 character request id, got %q", id)
	}
}

func TestToken(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for range 1000 {
		tok := Token()

		if !tokenPattern.MatchString(tok) {
			t.Fatalf("token %q is not 24 base64url characters", tok)
		}

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil || len(raw) < 16 {
			t.Fatalf("token %q does not carry at least 16 random bytes", tok)
		}

		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}

		seen[tok] = struct{}{}
	}
}
