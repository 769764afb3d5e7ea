// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package store persists per-user watch-history caches as JSON files
// under a data directory.
//
// Two documents exist per user: the normalized snapshot consumed by
// the dashboard, and the raw deduplicated Trakt response the updater
// compares against to decide whether anything changed. The primary
// user keeps legacy unsuffixed filenames so existing deployments keep
// their caches across upgrades.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"github.com/traktboard/traktboard/internal/models"
)

// ErrNoSnapshot is returned when a user has no cached snapshot yet.
var ErrNoSnapshot = errors.New("store: no snapshot for user")

// usernamePattern restricts usernames used in filenames. Trakt slugs
// are alphanumeric with dashes and underscores; anything else is
// rejected before it can traverse paths.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store reads and writes the JSON cache files of all tracked users.
type Store struct {
	dataDir     string
	primaryUser string
}

// New creates a Store rooted at dataDir. primaryUser selects which
// account maps to the legacy unsuffixed filenames; it may be empty.
func New(dataDir, primaryUser string) *Store {
	return &Store{dataDir: dataDir, primaryUser: primaryUser}
}

// DataDir returns the root directory of the cache files.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ValidUsername reports whether the username is safe to use in cache
// file names.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// SnapshotPath returns the snapshot file path for a user.
func (s *Store) SnapshotPath(username string) string {
	if username == "" || username == s.primaryUser {
		return filepath.Join(s.dataDir, "trakt_history.json")
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("trakt_history_%s.json", username))
}

// RawPath returns the raw-cache file path for a user.
func (s *Store) RawPath(username string) string {
	if username == "" || username == s.primaryUser {
		return filepath.Join(s.dataDir, "trakt_history_raw.json")
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("trakt_history_raw_%s.json", username))
}

// LoadSnapshot reads a user's normalized snapshot. ErrNoSnapshot is
// returned when the file does not exist.
func (s *Store) LoadSnapshot(username string) (*models.HistorySnapshot, error) {
	if username != "" && !ValidUsername(username) {
		return nil, fmt.Errorf("store: invalid username %q", username)
	}

	data, err := os.ReadFile(s.SnapshotPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("store: reading snapshot for %s: %w", username, err)
	}

	snap := &models.HistorySnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("store: decoding snapshot for %s: %w", username, err)
	}
	return snap, nil
}

// WriteSnapshot atomically writes a user's snapshot: the document is
// written to a temp file in the same directory and renamed over the
// target so readers never observe a partial file.
func (s *Store) WriteSnapshot(username string, snap *models.HistorySnapshot) error {
	if username != "" && !ValidUsername(username) {
		return fmt.Errorf("store: invalid username %q", username)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding snapshot for %s: %w", username, err)
	}
	return s.writeAtomic(s.SnapshotPath(username), data)
}

// LoadRaw reads a user's raw cache bytes. A missing file returns nil
// bytes and no error: first runs have nothing to compare against.
func (s *Store) LoadRaw(username string) ([]byte, error) {
	if username != "" && !ValidUsername(username) {
		return nil, fmt.Errorf("store: invalid username %q", username)
	}

	data, err := os.ReadFile(s.RawPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading raw cache for %s: %w", username, err)
	}
	return data, nil
}

// WriteRaw atomically writes a user's raw cache bytes.
func (s *Store) WriteRaw(username string, data []byte) error {
	if username != "" && !ValidUsername(username) {
		return fmt.Errorf("store: invalid username %q", username)
	}
	return s.writeAtomic(s.RawPath(username), data)
}

// SnapshotAge returns how long ago the user's snapshot was written,
// based on file mtime. ErrNoSnapshot is returned when no file exists.
func (s *Store) SnapshotAge(username string) (time.Duration, error) {
	if username != "" && !ValidUsername(username) {
		return 0, fmt.Errorf("store: invalid username %q", username)
	}

	info, err := os.Stat(s.SnapshotPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoSnapshot
		}
		return 0, fmt.Errorf("store: stat snapshot for %s: %w", username, err)
	}
	return time.Since(info.ModTime()), nil
}

// IsFresh reports whether the user's snapshot is younger than maxAge.
// A missing snapshot is never fresh.
func (s *Store) IsFresh(username string, maxAge time.Duration) bool {
	age, err := s.SnapshotAge(username)
	if err != nil {
		return false
	}
	return age < maxAge
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replacing %s: %w", path, err)
	}
	return nil
}
