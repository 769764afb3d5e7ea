// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Trakt.APIURL != "https://api.trakt.tv" {
		t.Errorf("default API URL = %q", cfg.Trakt.APIURL)
	}
	if cfg.Updater.Interval != time.Hour {
		t.Errorf("default interval = %v, want 1h", cfg.Updater.Interval)
	}
	if cfg.Updater.Timeout != 600*time.Second {
		t.Errorf("default timeout = %v, want 600s", cfg.Updater.Timeout)
	}
	if cfg.Server.Port != 8084 {
		t.Errorf("default port = %d, want 8084", cfg.Server.Port)
	}
	if cfg.API.DefaultPageSize != 10 {
		t.Errorf("default page size = %d, want 10", cfg.API.DefaultPageSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRIMARY_USER", "alice")
	t.Setenv("ADDITIONAL_USERS", "bob, carol")
	t.Setenv("REFRESH_INTERVAL", "30m")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("UPDATE_SCRIPT_PATH", "/opt/scripts/update.py")
	t.Setenv("INTERPRETER_PATH", "/usr/bin/python3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Users.Primary != "alice" {
		t.Errorf("primary user = %q, want alice", cfg.Users.Primary)
	}
	if len(cfg.Users.Additional) != 2 || cfg.Users.Additional[0] != "bob" || cfg.Users.Additional[1] != "carol" {
		t.Errorf("additional users = %v, want [bob carol]", cfg.Users.Additional)
	}
	if cfg.Updater.Interval != 30*time.Minute {
		t.Errorf("interval = %v, want 30m", cfg.Updater.Interval)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Updater.ScriptPath != "/opt/scripts/update.py" {
		t.Errorf("script path = %q", cfg.Updater.ScriptPath)
	}
	if cfg.Updater.Interpreter != "/usr/bin/python3" {
		t.Errorf("interpreter = %q", cfg.Updater.Interpreter)
	}
}

func TestLoadUnmappedEnvIgnored(t *testing.T) {
	t.Setenv("RANDOM_UNRELATED_VAR", "users.primary=oops")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Users.Primary != "" {
		t.Errorf("unmapped env var leaked into config: %q", cfg.Users.Primary)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
users:
  primary: alice
  additional:
    - bob
updater:
  interval: 2h
server:
  port: 8085
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Users.Primary != "alice" {
		t.Errorf("primary = %q, want alice", cfg.Users.Primary)
	}
	if cfg.Updater.Interval != 2*time.Hour {
		t.Errorf("interval = %v, want 2h", cfg.Updater.Interval)
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("port = %d, want 8085", cfg.Server.Port)
	}
	// Untouched values keep defaults.
	if cfg.Updater.Timeout != 600*time.Second {
		t.Errorf("timeout = %v, want default 600s", cfg.Updater.Timeout)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8085\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, env should beat file", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Updater.Interval = 0 }},
		{"zero timeout", func(c *Config) { c.Updater.Timeout = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"empty script path", func(c *Config) { c.Updater.ScriptPath = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"default page size above max", func(c *Config) {
			c.API.DefaultPageSize = 200
			c.API.MaxPageSize = 100
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

func TestUserTargets(t *testing.T) {
	tests := []struct {
		name  string
		users UsersConfig
		want  []string
	}{
		{
			name:  "primary and additional in order",
			users: UsersConfig{Primary: "alice", Additional: []string{"bob", "carol"}},
			want:  []string{"alice", "bob", "carol"},
		},
		{
			name:  "blank additional entries dropped",
			users: UsersConfig{Primary: "alice", Additional: []string{"", "bob"}},
			want:  []string{"alice", "bob"},
		},
		{
			name:  "no users",
			users: UsersConfig{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.users.UserTargets()
			if len(got) != len(tt.want) {
				t.Fatalf("UserTargets() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("UserTargets()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScriptExists(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "update.py")
	if err := os.WriteFile(script, []byte("#!/usr/bin/env python3\n"), 0o700); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	cfg := Default()
	cfg.Updater.ScriptPath = script
	if !cfg.ScriptExists() {
		t.Error("ScriptExists() = false for existing file")
	}

	cfg.Updater.ScriptPath = filepath.Join(dir, "missing.py")
	if cfg.ScriptExists() {
		t.Error("ScriptExists() = true for missing file")
	}

	cfg.Updater.ScriptPath = dir
	if cfg.ScriptExists() {
		t.Error("ScriptExists() = true for directory")
	}
}
