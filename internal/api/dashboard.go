// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/traktboard/traktboard/internal/history"
	"github.com/traktboard/traktboard/internal/models"
	"github.com/traktboard/traktboard/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").
	Funcs(template.FuncMap{
		"inc": func(n int) int { return n + 1 },
		"dec": func(n int) int { return n - 1 },
	}).
	ParseFS(templateFS, "templates/*.html"))

// dashboardData feeds the dashboard template.
type dashboardData struct {
	Username    string
	Title       string
	Query       history.Query
	Stats       history.Stats
	Items       []models.HistoryItem
	Days        []history.DayGroup
	Page        int
	TotalPages  int
	PageSizes   []int
	Genres      []string
	Years       []int
	GeneratedAt string
	Flash       string
	RatingsNote bool
	FilterBase  string
}

// Dashboard renders the HTML gallery or calendar view. Filters arrive
// as path segments with an optional username prefix; plain query
// parameters work too and win on conflict.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	username, pathValues := parseFilterPath(r.URL.Path)
	if !h.knownUser(username) {
		http.NotFound(w, r)
		return
	}

	// Query parameters override path segments.
	merged := url.Values{}
	for key, vals := range pathValues {
		merged[key] = vals
	}
	for key, vals := range r.URL.Query() {
		merged[key] = vals
	}

	q := history.ParseQuery(merged, h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize)
	q.User = username

	snap, err := h.store.LoadSnapshot(username)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			h.renderEmpty(w, username)
			return
		}
		h.logger.Error().Err(err).Str("user", username).Msg("loading snapshot failed")
		http.Error(w, "snapshot unreadable", http.StatusInternalServerError)
		return
	}

	filtered := history.Filter(snap.Items, q, time.Now())

	data := dashboardData{
		Username:    username,
		Title:       h.pageTitle(username),
		Query:       q,
		Stats:       history.ComputeStats(filtered),
		PageSizes:   history.PageSizeOptions,
		Genres:      history.Genres(snap.Items),
		Years:       history.Years(snap.Items),
		GeneratedAt: snap.GeneratedAt,
		Flash:       merged.Get("flash"),
		RatingsNote: username != "" && username != h.cfg.Users.Primary,
		FilterBase:  filterBase(username, q),
	}

	if q.View == history.ViewCalendar {
		days, totalPages, page := history.PaginateDays(history.GroupByDay(filtered), q.Page, q.PerPage)
		data.Days = days
		data.TotalPages = totalPages
		data.Page = page
	} else {
		items, totalPages, page := history.Paginate(filtered, q.Page, q.PerPage)
		data.Items = items
		data.TotalPages = totalPages
		data.Page = page
	}

	h.render(w, &data)
}

// renderEmpty shows the no-snapshot-yet page instead of an error so a
// first visit before any refresh still gets a usable screen.
func (h *Handler) renderEmpty(w http.ResponseWriter, username string) {
	h.render(w, &dashboardData{
		Username:  username,
		Title:     h.pageTitle(username),
		Query:     history.Query{Media: history.MediaAll, Period: history.PeriodAll, View: history.ViewGallery},
		PageSizes: history.PageSizeOptions,
		Page:      1,
	})
}

func (h *Handler) render(w http.ResponseWriter, data *dashboardData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("rendering dashboard failed")
	}
}

func (h *Handler) pageTitle(username string) string {
	if username == "" || username == h.cfg.Users.Primary {
		return "Watch History"
	}
	return "Watch History - " + username
}

// filterBase rebuilds the path-segment filter prefix of the current
// query so pagination links keep every active filter.
func filterBase(username string, q history.Query) string {
	base := ""
	if username != "" {
		base += "/" + url.PathEscape(username)
	}
	pairs := []struct{ key, value string }{
		{"genre", q.Genre},
		{"actor", q.Actor},
		{"search", q.Search},
		{"year", yearSegment(q.Year)},
	}
	for _, p := range pairs {
		if p.value != "" {
			base += "/" + p.key + "/" + url.PathEscape(p.value)
		}
	}
	if q.Media != history.MediaAll {
		base += "/media/" + q.Media
	}
	if q.Period != history.PeriodAll {
		base += "/period/" + q.Period
	}
	if q.Rated {
		base += "/rated/yes"
	}
	if q.View != history.ViewGallery {
		base += "/view/" + q.View
	}
	if base == "" {
		base = "/"
	}
	return base
}

func yearSegment(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
