// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

// Global exposes the server configuration.
var Global ServerConfig

// Translation store kinds accepted by Content.TranslationStore.
const (
	TranslationStoreMemory = "memory"
	TranslationStoreSQLite = "sqlite"
	TranslationStoreRedis  = "redis"
)

// configFileEnv names the environment variable holding the config file path.
const configFileEnv = "PROXIMA_CONFIGFILE"

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"PROXIMA_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"PROXIMA_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"PROXIMA_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"PROXIMA_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"PROXIMA_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"PROXIMA_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
		// MaxBodySize caps the size of form submissions, in bytes. Zero derives
		// it from Content.MaxTranslationLength; smaller values are rejected.
		MaxBodySize int64 `env:"PROXIMA_MAX_BODY_SIZE,overwrite" yaml:"maxBodySize"`
	} `yaml:"basic"`

	Session struct {
		CookieName string `env:"PROXIMA_SESSION_COOKIE,overwrite" yaml:"cookieName"`
	} `yaml:"session"`

	Content struct {
		// SeedFile is a JSON message list; empty means the built-in demo conversation.
		SeedFile string `env:"PROXIMA_SEED_FILE,overwrite" yaml:"seedFile"`
		// ImageDir holds N.png / N.jpg files for image id N.
		ImageDir             string `env:"PROXIMA_IMAGE_DIR,overwrite" yaml:"imageDir"`
		TranslationStore     string `env:"PROXIMA_TRANSLATION_STORE,overwrite" yaml:"translationStore"`
		SQLitePath           string `env:"PROXIMA_SQLITE_PATH,overwrite" yaml:"sqlitePath"`
		RedisURL             string `env:"PROXIMA_REDIS_URL,overwrite" yaml:"redisURL"`
		MaxTranslationLength int    `env:"PROXIMA_MAX_TRANSLATION_LENGTH,overwrite" yaml:"maxTranslationLength"`
	} `yaml:"content"`

	Cache struct {
		Enabled  bool `env:"PROXIMA_CACHE,overwrite" yaml:"enabled"`
		Size     int  `env:"PROXIMA_CACHE_SIZE,overwrite" yaml:"cacheSize"`
		Compress bool `env:"PROXIMA_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	HTTPCache struct {
		// ImageMaxAge is the Cache-Control max-age of image responses.
		ImageMaxAge time.Duration `env:"PROXIMA_IMAGE_MAX_AGE,overwrite" yaml:"imageMaxAge"`
	} `yaml:"httpCache"`

	Instance struct {
		StartingTime string `yaml:"-"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment bool `env:"PROXIMA_DEV" yaml:"inDevelopment"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"PROXIMA_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"PROXIMA_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"PROXIMA_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	Limiter struct {
		Enabled    bool     `env:"PROXIMA_LIMITER,overwrite" yaml:"enabled"`
		Rate       float64  `env:"PROXIMA_LIMITER_RATE,overwrite" yaml:"rate"`
		Burst      int      `env:"PROXIMA_LIMITER_BURST,overwrite" yaml:"burst"`
		PassIPs    []string `env:"PROXIMA_LIMITER_PASS_IPS,overwrite" yaml:"passList"`
		IPv4Prefix int      `env:"PROXIMA_LIMITER_IPV4_PREFIX,overwrite" yaml:"ipv4Prefix"`
		IPv6Prefix int      `env:"PROXIMA_LIMITER_IPV6_PREFIX,overwrite" yaml:"ipv6Prefix"`
		// TrustForwardedFor makes the limiter key clients by X-Forwarded-For.
		TrustForwardedFor bool `env:"PROXIMA_LIMITER_TRUST_FORWARDED_FOR,overwrite" yaml:"trustForwardedFor"`
	} `yaml:"limiter"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	flagValue, flagSet := parseCommandLineArgs()
	configFilePath := resolveConfigPath(flagValue, flagSet, os.Getenv(configFileEnv), fileExists)

	if err := cfg.Load(configFilePath); err != nil {
		return err
	}

	cfg.setupAudit()
	cfg.print()

	// Heuristically check for containerized environment and warn if host is not a wildcard address.
	if isContainerized() && cfg.Basic.UnixSocket == "" && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the service from being accessible outside the container.")
	}

	return nil
}

// Load fills cfg from defaults, the YAML file at configFilePath (if any),
// a .env file and the environment, then validates the result.
func (cfg *ServerConfig) Load(configFilePath string) error {
	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	return nil
}

// skippedLogPaths are request paths whose access log would only be noise.
var skippedLogPaths = []string{"/api/ping"}

// ShouldSkipServerLogging determines if a request should bypass the logging middleware.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	for _, skipped := range skippedLogPaths {
		if path == skipped {
			return true
		}
	}

	return cfg.Development.InDevelopment && strings.HasPrefix(path, "/image")
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be 100% accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if _, err := os.Stat("/.containerenv"); err == nil {
		return true
	}

	// #nosec G304 -- Reading a well-known system file for heuristics.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err == nil {
		content := string(cgroup)

		return strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") ||
			strings.Contains(content, "lxc") ||
			strings.Contains(content, "crio") ||
			// systemd-nspawn containers
			strings.Contains(content, ".machine")
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}

// TranslationStoreLocation is the database path or server URL handed to the
// configured translation store.
func (cfg *ServerConfig) TranslationStoreLocation() string {
	switch cfg.Content.TranslationStore {
	case TranslationStoreSQLite:
		return cfg.Content.SQLitePath
	case TranslationStoreRedis:
		return cfg.Content.RedisURL
	default:
		return ""
	}
}
