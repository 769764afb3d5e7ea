// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package config loads and validates application configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for all Traktboard processes.
type Config struct {
	Trakt    TraktConfig    `koanf:"trakt"`
	Users    UsersConfig    `koanf:"users"`
	Updater  UpdaterConfig  `koanf:"updater"`
	Storage  StorageConfig  `koanf:"storage"`
	Images   ImagesConfig   `koanf:"images"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TraktConfig holds Trakt.tv API credentials and client tuning.
type TraktConfig struct {
	// ClientID is the Trakt application client ID. Required by the
	// updater and authenticate commands; the dashboard server can run
	// without it as long as snapshots exist.
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// APIURL is the Trakt API base URL, overridable for tests.
	APIURL string `koanf:"api_url" validate:"required,url"`

	// TokenFile is where the device-flow OAuth token is persisted.
	TokenFile string `koanf:"token_file" validate:"required"`

	// RequestsPerSecond and Burst bound the client-side request rate.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"gt=0"`

	// Timeout applies to individual API requests.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// UsersConfig lists the tracked Trakt accounts.
type UsersConfig struct {
	// Primary is refreshed in forced mode every scheduler tick. The
	// scheduler refuses to start without it.
	Primary string `koanf:"primary"`

	// Additional users are refreshed in cached mode, in order.
	Additional []string `koanf:"additional"`
}

// UpdaterConfig controls the refresh subprocess and its scheduling.
type UpdaterConfig struct {
	// Interpreter and ScriptPath form the refresh command line:
	// <interpreter> <script_path> --user <name> [--force].
	// The defaults run the bundled updater binary through env(1) so
	// the two-token command shape holds for scripts and binaries alike.
	Interpreter string `koanf:"interpreter" validate:"required"`
	ScriptPath  string `koanf:"script_path" validate:"required"`

	// Interval between scheduler ticks.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// Timeout is the per-invocation wall-clock limit.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// CacheDuration is how long a snapshot counts as fresh for the
	// web-triggered refresh and for cached-mode invocations.
	CacheDuration time.Duration `koanf:"cache_duration" validate:"gt=0"`

	// HistoryLimit caps fetched history items per user. 0 = unlimited.
	HistoryLimit int `koanf:"history_limit" validate:"gte=0"`
}

// StorageConfig locates the JSON cache files.
type StorageConfig struct {
	DataDir string `koanf:"data_dir" validate:"required"`
}

// ImagesConfig controls poster thumbnail lookups.
type ImagesConfig struct {
	Enabled bool `koanf:"enabled"`

	// RPDBAPIKey enables RatingPosterDB lookups; when empty the
	// updater falls back to Trakt images.
	RPDBAPIKey string `koanf:"rpdb_api_key"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for the config file and env.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// UserTargets returns the tracked users in refresh order: primary
// first (forced), then additional users (cached). Blank entries are
// dropped.
func (u UsersConfig) UserTargets() []string {
	targets := make([]string, 0, 1+len(u.Additional))
	if u.Primary != "" {
		targets = append(targets, u.Primary)
	}
	for _, name := range u.Additional {
		if name != "" {
			targets = append(targets, name)
		}
	}
	return targets
}

// IsPrimary reports whether username is the configured primary user.
func (u UsersConfig) IsPrimary(username string) bool {
	return username != "" && username == u.Primary
}

// Validate checks structural constraints. The primary user is
// deliberately not required here: the updater and authenticate
// commands take --user flags, and the scheduler enforces its own
// primary-user precondition at start.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("invalid configuration: default page size %d exceeds max %d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}

	return nil
}

// ScriptExists reports whether the configured update script is present
// on disk. Logged at startup so a misconfigured path is visible before
// the first tick fails.
func (c *Config) ScriptExists() bool {
	info, err := os.Stat(c.Updater.ScriptPath)
	return err == nil && !info.IsDir()
}
