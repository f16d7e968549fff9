// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"os"
)

const (
	defaultConfigFile = "./config.yaml"
	altConfigFile     = "./config.yml"
)

// parseCommandLineArgs defines and parses the -config flag. It returns the
// flag's value and whether the user set it explicitly.
func parseCommandLineArgs() (string, bool) {
	if flag.Lookup("config") == nil {
		flag.String("config", defaultConfigFile, "Path to a Proxima configuration file in YAML format.")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	explicit := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	return flag.Lookup("config").Value.String(), explicit
}

// resolveConfigPath picks the configuration file: an explicit -config flag,
// then PROXIMA_CONFIGFILE, then ./config.yaml, falling back to ./config.yml
// when only the latter exists.
func resolveConfigPath(flagValue string, flagSet bool, envValue string, exists func(string) bool) string {
	switch {
	case flagSet:
		return flagValue
	case envValue != "":
		return envValue
	case !exists(flagValue) && exists(altConfigFile):
		return altConfigFile
	default:
		return flagValue
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
