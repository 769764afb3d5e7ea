// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package trakt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/traktboard/traktboard/internal/config"
)

func testConfig(serverURL string) config.TraktConfig {
	return config.TraktConfig{
		ClientID:          "test-client-id",
		ClientSecret:      "test-secret",
		APIURL:            serverURL,
		TokenFile:         "",
		RequestsPerSecond: 1000,
		Burst:             1000,
		Timeout:           5 * time.Second,
	}
}

func TestHistorySetsHeadersAndPagination(t *testing.T) {
	var gotAPIKey, gotVersion, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("trakt-api-key")
		gotVersion = r.Header.Get("trakt-api-version")
		gotAuth = r.Header.Get("Authorization")

		if r.URL.Path != "/users/alice/history" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("extended") != "full,images" {
			t.Errorf("missing extended=full,images, query %v", r.URL.Query())
		}

		w.Header().Set("X-Pagination-Page", "1")
		w.Header().Set("X-Pagination-Page-Count", "3")
		w.Header().Set("X-Pagination-Item-Count", "250")
		json.NewEncoder(w).Encode([]HistoryEntry{
			{ID: 1, Type: "movie", Movie: &Movie{Title: "Heat", Year: 1995}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "token-abc")

	entries, info, err := c.History(t.Context(), "alice", 1, 100)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}

	if gotAPIKey != "test-client-id" {
		t.Errorf("trakt-api-key = %q", gotAPIKey)
	}
	if gotVersion != "2" {
		t.Errorf("trakt-api-version = %q", gotVersion)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(entries) != 1 || entries[0].Movie.Title != "Heat" {
		t.Errorf("entries = %+v", entries)
	}
	if info.PageCount != 3 || info.ItemCount != 250 {
		t.Errorf("pagination = %+v", info)
	}
}

func TestAllHistoryWalksPages(t *testing.T) {
	var pages atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages.Add(1)

		w.Header().Set("X-Pagination-Page", page)
		w.Header().Set("X-Pagination-Page-Count", "2")
		json.NewEncoder(w).Encode([]HistoryEntry{
			{ID: 1, Type: "movie", Movie: &Movie{Title: "Page " + page}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	entries, err := c.AllHistory(t.Context(), "alice", 0)
	if err != nil {
		t.Fatalf("AllHistory() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
	if pages.Load() != 2 {
		t.Errorf("server saw %d requests, want 2", pages.Load())
	}
}

func TestAllHistoryHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pagination-Page-Count", "10")
		items := make([]HistoryEntry, 100)
		for i := range items {
			items[i] = HistoryEntry{ID: int64(i), Type: "movie", Movie: &Movie{Title: "M"}}
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	entries, err := c.AllHistory(t.Context(), "alice", 150)
	if err != nil {
		t.Fatalf("AllHistory() failed: %v", err)
	}
	if len(entries) != 150 {
		t.Errorf("got %d entries, want 150", len(entries))
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	_, err := c.ShowSummary(t.Context(), "missing-show")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ShowSummary() error = %v, want ErrNotFound", err)
	}
}

func TestGetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	_, _, err := c.History(t.Context(), "alice", 1, 100)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("History() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.StatusCode)
	}
}

func TestShowSeasons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shows/breaking-bad/seasons" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Season{
			{Number: 1, Episodes: []Episode{{Season: 1, Number: 1, Title: "Pilot", IDs: IDs{Trakt: 73640}}}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	seasons, err := c.ShowSeasons(t.Context(), "breaking-bad")
	if err != nil {
		t.Fatalf("ShowSeasons() failed: %v", err)
	}
	if len(seasons) != 1 || len(seasons[0].Episodes) != 1 {
		t.Fatalf("seasons = %+v", seasons)
	}
	if seasons[0].Episodes[0].Title != "Pilot" {
		t.Errorf("episode title = %q", seasons[0].Episodes[0].Title)
	}
}

func TestPeople(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies/heat-1995/people" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(People{Cast: []CastMember{
			{Character: "Neil McCauley", Person: Person{Name: "Robert De Niro"}},
			{Character: "Vincent Hanna", Person: Person{Name: "Al Pacino"}},
		}})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	people, err := c.People(t.Context(), "movies", "heat-1995")
	if err != nil {
		t.Fatalf("People() failed: %v", err)
	}
	if len(people.Cast) != 2 || people.Cast[0].Person.Name != "Robert De Niro" {
		t.Errorf("cast = %+v", people.Cast)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	_, err := LoadToken(path)
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("LoadToken() on missing file = %v, want ErrNoToken", err)
	}

	token := &Token{
		AccessToken:  "abc",
		RefreshToken: "def",
		ExpiresIn:    7776000,
		CreatedAt:    time.Now().Unix(),
	}
	if err := SaveToken(path, token); err != nil {
		t.Fatalf("SaveToken() failed: %v", err)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() failed: %v", err)
	}
	if got.AccessToken != "abc" || got.RefreshToken != "def" {
		t.Errorf("token round trip = %+v", got)
	}
	if !got.Valid() {
		t.Error("fresh token should be valid")
	}
}

func TestTokenValidity(t *testing.T) {
	tests := []struct {
		name  string
		token *Token
		want  bool
	}{
		{"nil token", nil, false},
		{"empty access token", &Token{}, false},
		{"expired", &Token{AccessToken: "x", ExpiresIn: 60, CreatedAt: time.Now().Add(-time.Hour).Unix()}, false},
		{"fresh", &Token{AccessToken: "x", ExpiresIn: 7776000, CreatedAt: time.Now().Unix()}, true},
		{"no expiry recorded", &Token{AccessToken: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
