// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("go", cfg.Build.GoVersion).
		Str("started", cfg.Instance.StartingTime).
		Msg("Starting Proxima")

	configYAML, err := cfg.marshalYAML()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Info().
		Msg("Application configuration:")
	fmt.Fprintln(os.Stderr, string(configYAML))
}

// marshalYAML renders the configuration with durations in human-readable form.
// Credentials in the Redis URL are masked.
func (cfg *ServerConfig) marshalYAML() ([]byte, error) {
	printable := *cfg
	printable.Content.RedisURL = redactURL(cfg.Content.RedisURL)

	return yaml.MarshalWithOptions(printable, GetDurationEncoderOption())
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}

	return u.Redacted()
}
