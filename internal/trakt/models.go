// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package trakt

import (
	"strings"
	"time"
)

// IDs are the external identifiers Trakt attaches to every entity.
type IDs struct {
	Trakt int64  `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
}

// Images holds the artwork URL lists attached when extended=images is
// requested. Trakt returns the URLs without a scheme.
type Images struct {
	Poster     []string `json:"poster,omitempty"`
	Thumb      []string `json:"thumb,omitempty"`
	Screenshot []string `json:"screenshot,omitempty"`
	Fanart     []string `json:"fanart,omitempty"`
}

// FirstURL returns the best available artwork URL, preferring thumb,
// then screenshot, poster and fanart. Scheme-less URLs are normalized
// to https. Empty when no artwork is attached.
func (im *Images) FirstURL() string {
	if im == nil {
		return ""
	}
	for _, group := range [][]string{im.Thumb, im.Screenshot, im.Poster, im.Fanart} {
		for _, u := range group {
			if u == "" {
				continue
			}
			if strings.Contains(u, "://") {
				return u
			}
			return "https://" + u
		}
	}
	return ""
}

// Movie is a Trakt movie, populated fully when extended=full,images.
type Movie struct {
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	IDs     IDs      `json:"ids"`
	Runtime int      `json:"runtime,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Rating  float64  `json:"rating,omitempty"`
	Images  *Images  `json:"images,omitempty"`
}

// Show is a Trakt show, populated fully when extended=full,images.
type Show struct {
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	IDs     IDs      `json:"ids"`
	Runtime int      `json:"runtime,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Rating  float64  `json:"rating,omitempty"`
	Images  *Images  `json:"images,omitempty"`
}

// Episode is a Trakt episode. Season can be zero in history payloads;
// the updater resolves it through the parent show's season list.
type Episode struct {
	Season  int     `json:"season"`
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	IDs     IDs     `json:"ids"`
	Runtime int     `json:"runtime,omitempty"`
	Images  *Images `json:"images,omitempty"`
}

// HistoryEntry is one item of GET /users/{user}/history.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	WatchedAt time.Time `json:"watched_at"`
	Action    string    `json:"action"`
	Type      string    `json:"type"`
	Movie     *Movie    `json:"movie,omitempty"`
	Episode   *Episode  `json:"episode,omitempty"`
	Show      *Show     `json:"show,omitempty"`
}

// RatingEntry is one item of GET /users/{user}/ratings/{type}.
type RatingEntry struct {
	RatedAt time.Time `json:"rated_at"`
	Rating  float64   `json:"rating"`
	Type    string    `json:"type"`
	Movie   *Movie    `json:"movie,omitempty"`
	Show    *Show     `json:"show,omitempty"`
	Episode *Episode  `json:"episode,omitempty"`
}

// Season is one entry of GET /shows/{id}/seasons?extended=episodes.
type Season struct {
	Number   int       `json:"number"`
	IDs      IDs       `json:"ids"`
	Episodes []Episode `json:"episodes,omitempty"`
}

// CastMember is one credit of GET /{type}/{id}/people.
type CastMember struct {
	Character string `json:"character"`
	Person    Person `json:"person"`
}

// Person is an actor or crew member.
type Person struct {
	Name string `json:"name"`
	IDs  IDs    `json:"ids"`
}

// People is the cast portion of a people response. Crew is ignored.
type People struct {
	Cast []CastMember `json:"cast"`
}

// SearchResult is one entry of GET /search/show.
type SearchResult struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Show  *Show   `json:"show,omitempty"`
	Movie *Movie  `json:"movie,omitempty"`
}
