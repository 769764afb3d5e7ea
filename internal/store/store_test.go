// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/traktboard/traktboard/internal/models"
)

func TestSnapshotPaths(t *testing.T) {
	s := New("/data", "alice")

	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"primary user gets legacy name", "alice", "/data/trakt_history.json"},
		{"empty username means primary", "", "/data/trakt_history.json"},
		{"additional user gets suffixed name", "bob", "/data/trakt_history_bob.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SnapshotPath(tt.username); got != tt.want {
				t.Errorf("SnapshotPath(%q) = %q, want %q", tt.username, got, tt.want)
			}
		})
	}

	if got := s.RawPath("bob"); got != "/data/trakt_history_raw_bob.json" {
		t.Errorf("RawPath(bob) = %q", got)
	}
	if got := s.RawPath("alice"); got != "/data/trakt_history_raw.json" {
		t.Errorf("RawPath(alice) = %q", got)
	}
}

func TestValidUsername(t *testing.T) {
	valid := []string{"alice", "bob-2", "carol_x", "User123"}
	for _, u := range valid {
		if !ValidUsername(u) {
			t.Errorf("ValidUsername(%q) = false", u)
		}
	}

	invalid := []string{"", "../etc", "a/b", "a b", "user!"}
	for _, u := range invalid {
		if ValidUsername(u) {
			t.Errorf("ValidUsername(%q) = true", u)
		}
	}
}

func TestWriteAndLoadSnapshot(t *testing.T) {
	s := New(t.TempDir(), "alice")

	snap := &models.HistorySnapshot{
		GeneratedAt: "2026-08-23T10:00:00Z",
		Count:       1,
		Items: []models.HistoryItem{
			{WatchedAt: "2026-08-22 20:00", Type: models.MediaTypeMovie, Title: "Heat", Year: 1995},
		},
	}

	if err := s.WriteSnapshot("bob", snap); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	got, err := s.LoadSnapshot("bob")
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if got.Count != 1 || len(got.Items) != 1 {
		t.Fatalf("snapshot round trip lost data: %+v", got)
	}
	if got.Items[0].Title != "Heat" {
		t.Errorf("item title = %q, want Heat", got.Items[0].Title)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	s := New(t.TempDir(), "alice")

	_, err := s.LoadSnapshot("alice")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LoadSnapshot() on missing file = %v, want ErrNoSnapshot", err)
	}
}

func TestLoadSnapshotRejectsBadUsername(t *testing.T) {
	s := New(t.TempDir(), "alice")

	if _, err := s.LoadSnapshot("../../etc/passwd"); err == nil {
		t.Error("LoadSnapshot() accepted path traversal username")
	}
	if err := s.WriteSnapshot("a/b", &models.HistorySnapshot{}); err == nil {
		t.Error("WriteSnapshot() accepted username with slash")
	}
}

func TestRawRoundTrip(t *testing.T) {
	s := New(t.TempDir(), "alice")

	// First run: nothing cached, no error.
	data, err := s.LoadRaw("alice")
	if err != nil {
		t.Fatalf("LoadRaw() on missing file failed: %v", err)
	}
	if data != nil {
		t.Errorf("LoadRaw() on missing file = %q, want nil", data)
	}

	raw := []byte(`[{"id":1}]`)
	if err := s.WriteRaw("alice", raw); err != nil {
		t.Fatalf("WriteRaw() failed: %v", err)
	}

	got, err := s.LoadRaw("alice")
	if err != nil {
		t.Fatalf("LoadRaw() failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("raw round trip = %q, want %q", got, raw)
	}
}

func TestSnapshotAgeAndFreshness(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "alice")

	if _, err := s.SnapshotAge("alice"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("SnapshotAge() on missing file = %v, want ErrNoSnapshot", err)
	}
	if s.IsFresh("alice", time.Hour) {
		t.Error("IsFresh() = true with no snapshot")
	}

	if err := s.WriteSnapshot("alice", &models.HistorySnapshot{}); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	age, err := s.SnapshotAge("alice")
	if err != nil {
		t.Fatalf("SnapshotAge() failed: %v", err)
	}
	if age > time.Minute {
		t.Errorf("fresh snapshot age = %v", age)
	}
	if !s.IsFresh("alice", time.Hour) {
		t.Error("IsFresh() = false for just-written snapshot")
	}

	// Backdate the file to simulate a stale cache.
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(s.SnapshotPath("alice"), old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if s.IsFresh("alice", time.Hour) {
		t.Error("IsFresh() = true for stale snapshot")
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "alice")

	if err := s.WriteSnapshot("alice", &models.HistorySnapshot{Count: 2}); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}
