// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package history

import (
	"math"
	"strconv"

	"github.com/traktboard/traktboard/internal/models"
)

// Stats summarizes a filtered history slice for the dashboard header.
type Stats struct {
	TotalItems    int     `json:"total_items"`
	MovieCount    int     `json:"movie_count"`
	EpisodeCount  int     `json:"episode_count"`
	TotalMinutes  int     `json:"total_minutes"`
	TotalHours    float64 `json:"total_hours"`
	TotalDays     float64 `json:"total_days"`
	RatedCount    int     `json:"rated_count"`
	AverageRating float64 `json:"average_rating"`
	TopActor      string  `json:"top_actor"`
	TopActorCount int     `json:"top_actor_count"`
	TopGenre      string  `json:"top_genre"`
	TopGenreCount int     `json:"top_genre_count"`
	TopYear       string  `json:"top_year"`
	TopYearCount  int     `json:"top_year_count"`
}

// ComputeStats tallies watch-time totals, rating averages and the most
// frequent actor, genre and release year. Runtime minutes of zero are
// counted as zero rather than estimated.
func ComputeStats(items []models.HistoryItem) Stats {
	s := Stats{TotalItems: len(items)}

	actors := make(map[string]int)
	genres := make(map[string]int)
	years := make(map[string]int)
	ratingSum := 0.0

	for i := range items {
		item := &items[i]

		if item.IsEpisode() {
			s.EpisodeCount++
		} else {
			s.MovieCount++
		}

		s.TotalMinutes += item.Runtime

		if item.Rating > 0 {
			s.RatedCount++
			ratingSum += item.Rating
		}

		for _, a := range item.Cast {
			if a != "" {
				actors[a]++
			}
		}
		for _, g := range item.Genres {
			if g != "" {
				genres[g]++
			}
		}
		if item.Year != 0 {
			years[strconv.Itoa(item.Year)]++
		}
	}

	s.TotalHours = round1(float64(s.TotalMinutes) / 60)
	s.TotalDays = round1(float64(s.TotalMinutes) / 60 / 24)
	if s.RatedCount > 0 {
		s.AverageRating = round1(ratingSum / float64(s.RatedCount))
	}

	s.TopActor, s.TopActorCount = topEntry(actors)
	s.TopGenre, s.TopGenreCount = topEntry(genres)
	s.TopYear, s.TopYearCount = topEntry(years)

	return s
}

// topEntry picks the highest-count key, breaking count ties by the
// lexically smaller key so results are deterministic.
func topEntry(counts map[string]int) (string, int) {
	var bestKey string
	bestCount := 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && count > 0 && key < bestKey) {
			bestKey = key
			bestCount = count
		}
	}
	return bestKey, bestCount
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
