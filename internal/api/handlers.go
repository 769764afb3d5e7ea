// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/history"
	"github.com/traktboard/traktboard/internal/metrics"
	"github.com/traktboard/traktboard/internal/models"
	"github.com/traktboard/traktboard/internal/store"
)

// RefreshRunner runs one synchronous refresh. Satisfied by the
// refresher package's Invoker.
type RefreshRunner interface {
	Run(ctx context.Context, username string, forced bool) models.RefreshOutcome
}

// Handler implements all HTTP endpoints.
type Handler struct {
	cfg    *config.Config
	store  *store.Store
	runner RefreshRunner
	logger zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg *config.Config, st *store.Store, runner RefreshRunner, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  st,
		runner: runner,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// knownUser reports whether name is a tracked account. The empty name
// means the primary user.
func (h *Handler) knownUser(name string) bool {
	if name == "" || name == h.cfg.Users.Primary {
		return true
	}
	for _, u := range h.cfg.Users.Additional {
		if u == name {
			return true
		}
	}
	return false
}

// Health reports liveness. The dashboard serves stale snapshots
// happily, so there is nothing deeper to probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now(), false)
}

// historyPayload is the data section of /api/v1/history responses.
type historyPayload struct {
	User        string               `json:"user,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	Count       int                  `json:"count"`
	Page        int                  `json:"page"`
	TotalPages  int                  `json:"total_pages"`
	PerPage     int                  `json:"per_page"`
	Stats       history.Stats        `json:"stats"`
	Items       []models.HistoryItem `json:"items"`
}

// History serves the filtered, paginated snapshot as JSON. All
// dashboard filters apply via query parameters.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	q := history.ParseQuery(r.URL.Query(), h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize)
	if !h.knownUser(q.User) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "unknown user")
		return
	}

	snap, err := h.store.LoadSnapshot(q.User)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			respondError(w, http.StatusServiceUnavailable, ErrCodeCacheUnavailable,
				"no snapshot yet, try /refresh first")
			return
		}
		h.logger.Error().Err(err).Str("user", q.User).Msg("loading snapshot failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "snapshot unreadable")
		return
	}

	filtered := history.Filter(snap.Items, q, time.Now())
	items, totalPages, page := history.Paginate(filtered, q.Page, q.PerPage)

	respondJSON(w, http.StatusOK, historyPayload{
		User:        q.User,
		GeneratedAt: snap.GeneratedAt,
		Count:       len(filtered),
		Page:        page,
		TotalPages:  totalPages,
		PerPage:     q.PerPage,
		Stats:       history.ComputeStats(filtered),
		Items:       items,
	}, started, true)
}

// Raw exposes the raw-cache document for debugging: how many entries
// it holds and the first one verbatim.
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	user := r.URL.Query().Get("user")
	if !h.knownUser(user) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "unknown user")
		return
	}

	raw, err := h.store.LoadRaw(user)
	if err != nil {
		h.logger.Error().Err(err).Str("user", user).Msg("loading raw cache failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "raw cache unreadable")
		return
	}
	if raw == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeCacheUnavailable, "no raw cache yet")
		return
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "raw cache corrupt")
		return
	}

	payload := map[string]interface{}{"count": len(entries)}
	if len(entries) > 0 {
		payload["first"] = entries[0]
	}
	respondJSON(w, http.StatusOK, payload, started, true)
}

// Refresh runs one synchronous refresh for a user and redirects back
// to the dashboard with a flash message. A fresh snapshot
// short-circuits the subprocess unless force is set.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	user := query.Get("user")
	force := query.Get("force") == "1" || query.Get("force") == "true"

	if !h.knownUser(user) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "unknown user")
		return
	}

	target := user
	if target == "" {
		target = h.cfg.Users.Primary
	}

	if !force && h.store.IsFresh(user, h.cfg.Updater.CacheDuration) {
		metrics.CacheFreshHits.Inc()
		h.logger.Debug().Str("user", target).Msg("snapshot fresh, refresh skipped")
		h.redirectBack(w, r, user, "fresh")
		return
	}

	outcome := h.runner.Run(r.Context(), target, force)
	if !outcome.OK() {
		h.logger.Warn().
			Str("user", target).
			Str("outcome", string(outcome.Status)).
			Int("exit_code", outcome.ExitCode).
			Msg("manual refresh failed")
		h.redirectBack(w, r, user, "failed")
		return
	}
	h.redirectBack(w, r, user, "refreshed")
}

func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request, user, flash string) {
	target := "/"
	if user != "" && user != h.cfg.Users.Primary {
		target = "/" + url.PathEscape(user) + "/"
	}
	http.Redirect(w, r, target+"?flash="+flash, http.StatusSeeOther)
}

// filterKeys are the path segments the dashboard understands as
// filter pairs.
var filterKeys = map[string]bool{
	"genre":    true,
	"actor":    true,
	"search":   true,
	"media":    true,
	"period":   true,
	"year":     true,
	"rated":    true,
	"view":     true,
	"page":     true,
	"per_page": true,
}

// parseFilterPath splits a dashboard path into an optional username
// prefix and filter key/value pairs:
//
//	/genre/crime/actor/Pacino  -> "", {genre: crime, actor: Pacino}
//	/alice/period/week         -> "alice", {period: week}
//
// A trailing key without a value is ignored.
func parseFilterPath(path string) (string, url.Values) {
	values := url.Values{}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return "", values
	}

	username := ""
	if !filterKeys[segments[0]] {
		username = segments[0]
		segments = segments[1:]
	}

	for i := 0; i+1 < len(segments); i += 2 {
		if filterKeys[segments[i]] {
			values.Set(segments[i], segments[i+1])
		}
	}
	return username, values
}
