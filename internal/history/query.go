// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package history filters, paginates and summarizes watch-history
// snapshots for the dashboard and the JSON API.
package history

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/traktboard/traktboard/internal/models"
)

// View names for the dashboard.
const (
	ViewGallery  = "gallery"
	ViewCalendar = "calendar"
)

// Media filter values.
const (
	MediaAll    = "both"
	MediaMovies = "movies"
	MediaSeries = "series"
)

// Period filter values.
const (
	PeriodAll   = "all"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// PageSizeOptions are the page sizes offered by the dashboard.
var PageSizeOptions = []int{10, 25, 50, 100}

// Query is a parsed, normalized filter request. Invalid inputs are
// clamped to defaults rather than rejected; the dashboard never 400s
// on a hand-edited URL.
type Query struct {
	User    string
	Genre   string
	Actor   string
	Search  string
	Media   string
	Period  string
	Year    int
	Rated   bool
	View    string
	Page    int
	PerPage int
}

// ParseQuery normalizes raw query values. defaultPerPage and
// maxPerPage come from API configuration.
func ParseQuery(values url.Values, defaultPerPage, maxPerPage int) Query {
	q := Query{
		User:    values.Get("user"),
		Genre:   strings.TrimSpace(values.Get("genre")),
		Actor:   strings.TrimSpace(values.Get("actor")),
		Search:  strings.TrimSpace(values.Get("search")),
		Media:   values.Get("media"),
		Period:  values.Get("period"),
		Rated:   values.Get("rated") == "yes",
		View:    values.Get("view"),
		Page:    parsePositiveInt(values.Get("page"), 1),
		PerPage: parsePositiveInt(values.Get("per_page"), defaultPerPage),
	}

	switch q.Media {
	case MediaMovies, MediaSeries:
	default:
		q.Media = MediaAll
	}

	switch q.Period {
	case PeriodWeek, PeriodMonth, PeriodYear:
	default:
		q.Period = PeriodAll
	}

	if q.View != ViewCalendar {
		q.View = ViewGallery
	}

	if year, err := strconv.Atoi(values.Get("year")); err == nil && year > 1800 {
		q.Year = year
	}

	if !validPageSize(q.PerPage) {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}

	return q
}

func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func validPageSize(n int) bool {
	for _, opt := range PageSizeOptions {
		if n == opt {
			return true
		}
	}
	return false
}

// Filter applies all query criteria to items, preserving order. now
// anchors the period filter.
func Filter(items []models.HistoryItem, q Query, now time.Time) []models.HistoryItem {
	var cutoff time.Time
	switch q.Period {
	case PeriodWeek:
		cutoff = now.AddDate(0, 0, -7)
	case PeriodMonth:
		cutoff = now.AddDate(0, -1, 0)
	case PeriodYear:
		cutoff = now.AddDate(-1, 0, 0)
	}

	search := strings.ToLower(q.Search)

	out := make([]models.HistoryItem, 0, len(items))
	for i := range items {
		item := &items[i]

		switch q.Media {
		case MediaMovies:
			if item.IsEpisode() {
				continue
			}
		case MediaSeries:
			if !item.IsEpisode() {
				continue
			}
		}

		if !cutoff.IsZero() {
			watched := item.WatchedTime()
			if watched.IsZero() || watched.Before(cutoff) {
				continue
			}
		}

		if q.Genre != "" && !item.MatchesGenre(q.Genre) {
			continue
		}
		if q.Actor != "" && !item.MatchesActor(q.Actor) {
			continue
		}
		if q.Year != 0 && item.Year != q.Year {
			continue
		}
		if q.Rated && item.Rating == 0 {
			continue
		}
		if search != "" && !matchesSearch(item, search) {
			continue
		}

		out = append(out, *item)
	}
	return out
}

// matchesSearch checks the lowercased needle against title, show
// title, cast names and release year.
func matchesSearch(item *models.HistoryItem, needle string) bool {
	if strings.Contains(strings.ToLower(item.Title), needle) {
		return true
	}
	if item.Show != nil && strings.Contains(strings.ToLower(item.Show.Title), needle) {
		return true
	}
	for _, c := range item.Cast {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	if item.Year != 0 && strings.Contains(strconv.Itoa(item.Year), needle) {
		return true
	}
	return false
}

// Paginate slices items into the requested page. The returned page is
// clamped into [1, totalPages] so an out-of-range request lands on a
// real page instead of an empty one.
func Paginate(items []models.HistoryItem, page, perPage int) ([]models.HistoryItem, int, int) {
	if perPage < 1 {
		perPage = 1
	}

	totalPages := (len(items) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start >= len(items) {
		return []models.HistoryItem{}, totalPages, page
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages, page
}

// DayGroup is one calendar day of plays.
type DayGroup struct {
	Date  string
	Items []models.HistoryItem
}

// GroupByDay buckets items by watched calendar day, newest day first.
// Input order within a day is preserved (snapshots are already newest
// first). Items with malformed timestamps are dropped.
func GroupByDay(items []models.HistoryItem) []DayGroup {
	index := make(map[string]int)
	groups := make([]DayGroup, 0)

	for _, item := range items {
		date := item.WatchedDate()
		if date == "" {
			continue
		}
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, DayGroup{Date: date})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	// Snapshot items are ordered newest first, so first-seen order of
	// dates is already descending. A defensive sort keeps the calendar
	// correct when a snapshot was merged out of order.
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	return groups
}

// PaginateDays pages the calendar view by day rather than by item.
func PaginateDays(groups []DayGroup, page, perPage int) ([]DayGroup, int, int) {
	if perPage < 1 {
		perPage = 1
	}

	totalPages := (len(groups) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start >= len(groups) {
		return []DayGroup{}, totalPages, page
	}
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end], totalPages, page
}

// Genres returns the sorted distinct genres across items.
func Genres(items []models.HistoryItem) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range items {
		for _, g := range items[i].Genres {
			key := strings.ToLower(g)
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct release years across items, newest first.
func Years(items []models.HistoryItem) []int {
	seen := make(map[int]bool)
	var out []int
	for i := range items {
		if y := items[i].Year; y != 0 && !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
