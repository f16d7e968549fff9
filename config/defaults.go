// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"time"
	"unicode/utf8"

	"codeberg.org/proxima/proxima/core/content"
)

const (
	// Default image Cache-Control max age in hours.
	defaultImageMaxAgeHours = 24

	// Room for the form fields that accompany a translation.
	formFieldsSlack = 64 << 10
	// A character is at most utf8.UTFMax bytes, each percent-encoded as three.
	maxEncodedCharSize = utf8.UTFMax * 3
)

// MinBodySize is the smallest request body cap that admits a form carrying a
// translation of maxTranslationLength characters, whatever the script.
func MinBodySize(maxTranslationLength int) int64 {
	return int64(maxTranslationLength)*maxEncodedCharSize + formFieldsSlack
}

// DefaultSessionCookie is the default name of the session cookie.
const DefaultSessionCookie = "SID"

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8080"
	cfg.Basic.MaxBodySize = 0 // derived from Content.MaxTranslationLength

	cfg.Session.CookieName = DefaultSessionCookie

	cfg.Content.SeedFile = ""
	cfg.Content.ImageDir = ""
	cfg.Content.TranslationStore = TranslationStoreMemory
	cfg.Content.SQLitePath = "./data/translations.db"
	cfg.Content.RedisURL = ""
	cfg.Content.MaxTranslationLength = content.MaxTranslationLength

	cfg.Cache.Enabled = false
	cfg.Cache.Size = 64
	cfg.Cache.Compress = true

	cfg.HTTPCache.ImageMaxAge = defaultImageMaxAgeHours * time.Hour

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"

	cfg.Limiter.Enabled = false
	cfg.Limiter.Rate = 2
	cfg.Limiter.Burst = 20
	cfg.Limiter.IPv4Prefix = 24
	cfg.Limiter.IPv6Prefix = 48
	cfg.Limiter.TrustForwardedFor = false
}
