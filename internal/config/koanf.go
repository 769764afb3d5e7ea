// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/traktboard/config.yaml",
	"/etc/traktboard/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in defaults, applied before the
// config file and environment variables.
func Default() *Config {
	return &Config{
		Trakt: TraktConfig{
			ClientID:          "",
			ClientSecret:      "",
			APIURL:            "https://api.trakt.tv",
			TokenFile:         "/data/trakt_token.json",
			RequestsPerSecond: 3,
			Burst:             3,
			Timeout:           30 * time.Second,
		},
		Users: UsersConfig{
			Primary:    "",
			Additional: []string{},
		},
		Updater: UpdaterConfig{
			Interpreter:   "/usr/bin/env",
			ScriptPath:    "/usr/local/bin/traktboard-updater",
			Interval:      time.Hour,
			Timeout:       600 * time.Second,
			CacheDuration: time.Hour,
			HistoryLimit:  0,
		},
		Storage: StorageConfig{
			DataDir: "/data",
		},
		Images: ImagesConfig{
			Enabled:    true,
			RPDBAPIKey: "",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8084,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds configuration from layered sources with koanf:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variable names map to koanf paths through an
	// explicit table: PRIMARY_USER -> users.primary.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are the paths parsed as comma-separated lists when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"users.additional",
	"security.cors_origins",
}

// processSliceFields converts comma-separated env strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config
// paths. Unmapped variables return "" and are skipped, so arbitrary
// environment noise never pollutes the config.
//
// Examples:
//   - PRIMARY_USER -> users.primary
//   - UPDATE_SCRIPT_PATH -> updater.script_path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Trakt API
		"trakt_client_id":           "trakt.client_id",
		"trakt_client_secret":       "trakt.client_secret",
		"trakt_api_url":             "trakt.api_url",
		"trakt_token_file":          "trakt.token_file",
		"trakt_requests_per_second": "trakt.requests_per_second",
		"trakt_burst":               "trakt.burst",
		"trakt_timeout":             "trakt.timeout",

		// Users
		"primary_user":     "users.primary",
		"additional_users": "users.additional",

		// Updater / scheduler
		"interpreter_path":   "updater.interpreter",
		"update_script_path": "updater.script_path",
		"refresh_interval":   "updater.interval",
		"refresh_timeout":    "updater.timeout",
		"cache_duration":     "updater.cache_duration",
		"history_limit":      "updater.history_limit",

		// Storage
		"data_dir": "storage.data_dir",

		// Images
		"images_enabled": "images.enabled",
		"rpdb_api_key":   "images.rpdb_api_key",

		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile registers a change callback for hot-reload setups.
// The caller owns mutex protection around any config swap.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
