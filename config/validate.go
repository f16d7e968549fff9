// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errMaxBodySizeTooSmall          = errors.New("Basic.MaxBodySize is too small for Content.MaxTranslationLength")
	errInvalidCookieName            = errors.New("Session.CookieName is not a valid cookie name")
	errInvalidTranslationStore      = errors.New("invalid Content.TranslationStore")
	errEmptySQLitePath              = errors.New("Content.SQLitePath cannot be empty when the sqlite store is used")
	errEmptyRedisURL                = errors.New("Content.RedisURL cannot be empty when the redis store is used")
	errInvalidMaxTranslationLength  = errors.New("Content.MaxTranslationLength must be positive")
	errInvalidCacheSize             = errors.New("Cache.Size must be positive when the cache is enabled")
	errInvalidLimiterRate           = errors.New("Limiter.Rate must be positive")
	errInvalidLimiterBurst          = errors.New("Limiter.Burst must be positive")
	errInvalidPassIP                = errors.New("invalid Limiter.PassList entry")
	errInvalidIPv4Prefix            = errors.New("IPv4 prefix must be between 0 and 32")
	errInvalidIPv6Prefix            = errors.New("IPv6 prefix must be between 0 and 128")
	errInvalidLogLevel              = errors.New("invalid Log.Level")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
)

// validateAndSet validates the server configuration and populates some fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	if !validCookieName(cfg.Session.CookieName) {
		return fmt.Errorf("%w: %q", errInvalidCookieName, cfg.Session.CookieName)
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.Log.Level)
	}

	switch cfg.Content.TranslationStore {
	case TranslationStoreMemory:
	case TranslationStoreSQLite:
		if cfg.Content.SQLitePath == "" {
			return errEmptySQLitePath
		}
	case TranslationStoreRedis:
		if cfg.Content.RedisURL == "" {
			return errEmptyRedisURL
		}
	default:
		return fmt.Errorf("%w: %q", errInvalidTranslationStore, cfg.Content.TranslationStore)
	}

	if cfg.Content.MaxTranslationLength <= 0 {
		return errInvalidMaxTranslationLength
	}

	minBodySize := MinBodySize(cfg.Content.MaxTranslationLength)

	switch {
	case cfg.Basic.MaxBodySize == 0:
		cfg.Basic.MaxBodySize = minBodySize
	case cfg.Basic.MaxBodySize < minBodySize:
		return fmt.Errorf("%w: %d bytes, need at least %d", errMaxBodySizeTooSmall, cfg.Basic.MaxBodySize, minBodySize)
	}

	if cfg.Content.ImageDir != "" {
		if info, err := os.Stat(cfg.Content.ImageDir); err != nil || !info.IsDir() {
			log.Warn().
				Str("path", cfg.Content.ImageDir).
				Msg("Content.ImageDir is not a readable directory, only built-in images will be served")
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return errInvalidCacheSize
	}

	// Skip validating Limiter configuration if it's not enabled
	if !cfg.Limiter.Enabled {
		return nil
	}

	if cfg.Limiter.Rate <= 0 {
		return errInvalidLimiterRate
	}

	if cfg.Limiter.Burst <= 0 {
		return errInvalidLimiterBurst
	}

	for _, entry := range cfg.Limiter.PassIPs {
		if !validIPOrPrefix(entry) {
			return fmt.Errorf("%w: %q", errInvalidPassIP, entry)
		}
	}

	if cfg.Limiter.IPv4Prefix < 0 || cfg.Limiter.IPv4Prefix > 32 {
		return errInvalidIPv4Prefix
	}

	if cfg.Limiter.IPv6Prefix < 0 || cfg.Limiter.IPv6Prefix > 128 {
		return errInvalidIPv6Prefix
	}

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		// Set TCP defaults
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8080"
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	case fileModeStringRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		mode := os.FileMode(0)

		for i, c := range cfg.Basic.RawUnixSocketPermissions {
			// If permission bit is set
			if c != '-' {
				// Set i-th bit from the end
				const bitsInByte = 8

				mode |= 1 << (bitsInByte - i)
			}
		}

		cfg.Basic.UnixSocketPermissions = mode
	default:
		return errUnixSocketInvalidPermissions
	}

	if cfg.Basic.UnixSocketUser != "" {
		lookup := user.Lookup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketUser) {
			lookup = user.LookupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketUser); err != nil {
			return errUnixSocketUserDoesNotExist
		}
	}

	if cfg.Basic.UnixSocketGroup != "" {
		lookup := user.LookupGroup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketGroup) {
			lookup = user.LookupGroupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketGroup); err != nil {
			return errUnixSocketGroupDoesNotExist
		}
	}

	return nil
}

// validCookieName reports whether name can be used as a cookie name.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}

	return (&http.Cookie{Name: name, Value: "x"}).Valid() == nil
}

func validIPOrPrefix(entry string) bool {
	entry = strings.TrimSpace(entry)

	if _, err := netip.ParsePrefix(entry); err == nil {
		return true
	}

	_, err := netip.ParseAddr(entry)

	return err == nil
}
