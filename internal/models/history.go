// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package models

import (
	"strings"
	"time"
)

// WatchedAtLayout is the local-time layout used for the watched_at field
// of normalized history items. Snapshots store local wall-clock time so
// the dashboard can group plays by calendar day without re-localizing.
const WatchedAtLayout = "2006-01-02 15:04"

// GeneratedAtLayout is the UTC layout of the snapshot generated_at field.
const GeneratedAtLayout = "2006-01-02T15:04:05Z"

// MediaType identifies the kind of a history item.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

// ItemIDs carries the external identifiers of a movie or episode.
// Trakt is the primary key source; IMDB/TMDB are kept for poster
// lookups and cross-referencing.
type ItemIDs struct {
	Trakt int64  `json:"trakt,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

// ShowRef is the minimal parent-show reference attached to episodes.
type ShowRef struct {
	Title string `json:"title"`
}

// HistoryItem is one normalized play in a user's watch history.
//
// Fields:
//   - WatchedAt: local wall-clock time, formatted with WatchedAtLayout
//   - Type: "movie" or "episode"
//   - Title: movie title, or episode title for episodes
//   - Year: release year (show year for episodes)
//   - Season/Number: episode coordinates, zero for movies
//   - Rating: the user's rating rounded to one decimal, 0 when unrated
//   - Cast: top-billed cast, at most five names
//   - Thumbnail: poster URL (RPDB or Trakt images), empty when disabled
type HistoryItem struct {
	WatchedAt string    `json:"watched_at"`
	Type      MediaType `json:"type"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	IDs       ItemIDs   `json:"ids"`
	Runtime   int       `json:"runtime,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	Genres    []string  `json:"genres,omitempty"`
	Cast      []string  `json:"cast,omitempty"`
	Show      *ShowRef  `json:"show,omitempty"`
	Season    int       `json:"season,omitempty"`
	Number    int       `json:"number,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// IsEpisode reports whether the item is an episode of a show.
func (h *HistoryItem) IsEpisode() bool {
	return h.Type == MediaTypeEpisode
}

// DisplayTitle returns "Show: Episode" for episodes and the plain title
// for movies.
func (h *HistoryItem) DisplayTitle() string {
	if h.Show != nil && h.Show.Title != "" {
		return h.Show.Title + ": " + h.Title
	}
	return h.Title
}

// WatchedTime parses the WatchedAt field. The zero time is returned for
// malformed values so filters can treat them as "never".
func (h *HistoryItem) WatchedTime() time.Time {
	t, err := time.ParseInLocation(WatchedAtLayout, h.WatchedAt, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WatchedDate returns the calendar-day portion of WatchedAt
// ("2006-01-02"), or an empty string when WatchedAt is malformed.
func (h *HistoryItem) WatchedDate() string {
	if len(h.WatchedAt) < 10 {
		return ""
	}
	return h.WatchedAt[:10]
}

// MatchesGenre reports whether the item carries the genre,
// case-insensitively.
func (h *HistoryItem) MatchesGenre(genre string) bool {
	for _, g := range h.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// MatchesActor reports whether any cast member contains the given
// substring, case-insensitively.
func (h *HistoryItem) MatchesActor(actor string) bool {
	needle := strings.ToLower(actor)
	for _, c := range h.Cast {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

// HistorySnapshot is the on-disk cache document produced by the updater
// and consumed by the dashboard.
type HistorySnapshot struct {
	GeneratedAt    string        `json:"generated_at"`
	GenerationTime float64       `json:"generation_time,omitempty"`
	Count          int           `json:"count"`
	Items          []HistoryItem `json:"items"`
}

// GeneratedTime parses the snapshot timestamp; the zero time is
// returned for malformed values.
func (s *HistorySnapshot) GeneratedTime() time.Time {
	t, err := time.Parse(GeneratedAtLayout, s.GeneratedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
