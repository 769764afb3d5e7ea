// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package updater fetches a user's Trakt watch history, enriches it
// with ratings, cast and posters, and writes the normalized snapshot
// the dashboard serves.
//
// A run is change-driven: the freshly fetched, deduplicated raw
// history is compared byte for byte against the previous raw cache,
// and when nothing changed the expensive enrichment and snapshot
// rewrite are skipped. Force mode rebuilds unconditionally.
package updater

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/traktboard/traktboard/internal/metrics"
	"github.com/traktboard/traktboard/internal/models"
	"github.com/traktboard/traktboard/internal/store"
	"github.com/traktboard/traktboard/internal/trakt"
)

const (
	// defaultLimit caps how many history entries one run fetches.
	defaultLimit = 1000

	// castLimit is how many top-billed names a snapshot item keeps.
	castLimit = 5

	// rpdbPosterURL is the Rating Poster Database poster template:
	// key, id kind (imdb/tmdb/tvdb), media id.
	rpdbPosterURL = "https://api.ratingposterdb.com/%s/%s/poster-default/%s.jpg?fallback=true"
)

// Options controls a single update run.
type Options struct {
	Username string
	Force    bool
	Limit    int
	NoImages bool
	NoCast   bool
}

// Result reports what a run did.
type Result struct {
	Username  string
	Skipped   bool
	ItemCount int
	Duration  time.Duration
}

// Updater builds snapshots from the Trakt API.
type Updater struct {
	client  *trakt.Client
	store   *store.Store
	rpdbKey string
	logger  zerolog.Logger

	// showCast and showDetails memoize people and summary lookups
	// within one run, keyed by show trakt ID. Long histories revisit
	// the same shows constantly. showDetails stores nil for failed
	// lookups so they are not retried.
	showCast    map[int64][]string
	showDetails map[int64]*trakt.Show
}

// New creates an Updater. rpdbKey may be empty; thumbnails then come
// from Trakt artwork alone.
func New(client *trakt.Client, st *store.Store, rpdbKey string, logger zerolog.Logger) *Updater {
	return &Updater{
		client:      client,
		store:       st,
		rpdbKey:     rpdbKey,
		logger:      logger.With().Str("component", "updater").Logger(),
		showCast:    make(map[int64][]string),
		showDetails: make(map[int64]*trakt.Show),
	}
}

// Run executes one update for opts.Username and returns what happened.
func (u *Updater) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if !store.ValidUsername(opts.Username) {
		return nil, fmt.Errorf("updater: invalid username %q", opts.Username)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	u.logger.Info().
		Str("user", opts.Username).
		Bool("force", opts.Force).
		Int("limit", limit).
		Msg("update started")

	entries, err := u.client.AllHistory(ctx, opts.Username, limit)
	if err != nil {
		return nil, fmt.Errorf("updater: fetching history for %s: %w", opts.Username, err)
	}

	deduped := dedupe(entries)
	u.logger.Debug().
		Int("fetched", len(entries)).
		Int("deduped", len(deduped)).
		Msg("history fetched")

	raw, err := json.Marshal(deduped)
	if err != nil {
		return nil, fmt.Errorf("updater: encoding raw history: %w", err)
	}

	if !opts.Force {
		previous, err := u.store.LoadRaw(opts.Username)
		if err != nil {
			return nil, err
		}
		if previous != nil && string(previous) == string(raw) {
			u.logger.Info().
				Str("user", opts.Username).
				Dur("duration", time.Since(start)).
				Msg("history unchanged, snapshot kept")
			return &Result{Username: opts.Username, Skipped: true, Duration: time.Since(start)}, nil
		}
	}

	ratings, err := u.fetchRatings(ctx, opts.Username)
	if err != nil {
		// Ratings are decoration. A rating outage must not block the
		// snapshot.
		u.logger.Warn().Err(err).Msg("ratings unavailable, continuing without")
		ratings = map[string]float64{}
	}

	items := make([]models.HistoryItem, 0, len(deduped))
	for i := range deduped {
		item, err := u.normalize(ctx, &deduped[i], ratings, opts)
		if err != nil {
			u.logger.Warn().Err(err).Int64("entry_id", deduped[i].ID).Msg("entry skipped")
			continue
		}
		items = append(items, *item)
	}

	snap := &models.HistorySnapshot{
		GeneratedAt:    time.Now().UTC().Format(models.GeneratedAtLayout),
		GenerationTime: time.Since(start).Seconds(),
		Count:          len(items),
		Items:          items,
	}
	if err := u.store.WriteSnapshot(opts.Username, snap); err != nil {
		return nil, err
	}
	if err := u.store.WriteRaw(opts.Username, raw); err != nil {
		return nil, err
	}
	metrics.SnapshotItems.WithLabelValues(opts.Username).Set(float64(len(items)))

	u.logger.Info().
		Str("user", opts.Username).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("snapshot written")

	return &Result{
		Username:  opts.Username,
		ItemCount: len(items),
		Duration:  time.Since(start),
	}, nil
}

// dedupe collapses replays of the same title on the same calendar day
// to a single entry, keeping the first (newest) occurrence. Trakt
// scrobbles often record a pause and resume as two plays.
func dedupe(entries []trakt.HistoryEntry) []trakt.HistoryEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]trakt.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		key := dedupeKey(&e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func dedupeKey(e *trakt.HistoryEntry) string {
	day := e.WatchedAt.Local().Format("2006-01-02")
	switch {
	case e.Movie != nil && e.Movie.IDs.Trakt != 0:
		return "movie|" + strconv.FormatInt(e.Movie.IDs.Trakt, 10) + "|" + day
	case e.Movie != nil:
		return "movie|" + e.Movie.Title + "|" + day
	case e.Episode != nil && e.Episode.IDs.Trakt != 0:
		return "episode|" + strconv.FormatInt(e.Episode.IDs.Trakt, 10) + "|" + day
	case e.Episode != nil:
		show := ""
		if e.Show != nil {
			show = e.Show.Title
		}
		return "episode|" + show + "|" + e.Episode.Title + "|" + day
	default:
		return "unknown|" + strconv.FormatInt(e.ID, 10)
	}
}

// fetchRatings merges the user's movie and episode ratings into one
// map keyed by "{type}:{trakt id}".
func (u *Updater) fetchRatings(ctx context.Context, username string) (map[string]float64, error) {
	out := make(map[string]float64)

	movies, err := u.client.Ratings(ctx, username, "movies")
	if err != nil {
		return nil, err
	}
	for _, r := range movies {
		if r.Movie != nil {
			out["movie:"+strconv.FormatInt(r.Movie.IDs.Trakt, 10)] = r.Rating
		}
	}

	episodes, err := u.client.Ratings(ctx, username, "episodes")
	if err != nil {
		return nil, err
	}
	for _, r := range episodes {
		if r.Episode != nil {
			out["episode:"+strconv.FormatInt(r.Episode.IDs.Trakt, 10)] = r.Rating
		}
	}

	return out, nil
}

// normalize converts one raw history entry into a snapshot item.
func (u *Updater) normalize(ctx context.Context, e *trakt.HistoryEntry, ratings map[string]float64, opts Options) (*models.HistoryItem, error) {
	item := &models.HistoryItem{
		WatchedAt: e.WatchedAt.Local().Format(models.WatchedAtLayout),
	}

	switch {
	case e.Movie != nil:
		m := e.Movie
		item.Type = models.MediaTypeMovie
		item.Title = m.Title
		item.Year = m.Year
		item.IDs = convertIDs(m.IDs)
		item.Runtime = m.Runtime
		item.Genres = m.Genres
		item.Rating = ratings["movie:"+strconv.FormatInt(m.IDs.Trakt, 10)]
		if !opts.NoCast {
			item.Cast = u.movieCast(ctx, m.IDs)
		}
	case e.Episode != nil && e.Show != nil:
		ep := e.Episode
		show := e.Show
		item.Type = models.MediaTypeEpisode
		item.Title = ep.Title
		item.Year = show.Year
		item.IDs = convertIDs(ep.IDs)
		item.Runtime = ep.Runtime
		if item.Runtime == 0 {
			item.Runtime = show.Runtime
		}
		item.Genres = show.Genres
		item.Show = &models.ShowRef{Title: show.Title}
		item.Season = ep.Season
		item.Number = ep.Number
		item.Rating = ratings["episode:"+strconv.FormatInt(ep.IDs.Trakt, 10)]
		if item.Season == 0 {
			u.resolveSeason(ctx, item, ep, show)
		}
		if !opts.NoCast {
			item.Cast = u.castForShow(ctx, show.IDs)
		}
		if !opts.NoImages {
			item.Thumbnail = u.episodeThumbnail(ctx, ep, show)
		}
		return item, nil
	default:
		return nil, fmt.Errorf("entry %d has no movie or episode payload", e.ID)
	}

	if !opts.NoImages {
		item.Thumbnail = u.movieThumbnail(e.Movie)
	}
	return item, nil
}

// resolveSeason recovers missing episode coordinates from the parent
// show's season list, matching by episode trakt ID first and title
// second. A show with no usable IDs is re-resolved through search.
// Best effort: an unresolvable episode keeps season zero.
func (u *Updater) resolveSeason(ctx context.Context, item *models.HistoryItem, ep *trakt.Episode, show *trakt.Show) {
	showID := traktID(show.IDs)
	if showID == "" {
		showID = u.searchShowID(ctx, show.Title)
	}
	if showID == "" {
		return
	}

	seasons, err := u.client.ShowSeasons(ctx, showID)
	if err != nil {
		u.logger.Debug().Err(err).Str("show", show.Title).Msg("season lookup failed")
		return
	}

	for _, season := range seasons {
		for _, candidate := range season.Episodes {
			if (ep.IDs.Trakt != 0 && candidate.IDs.Trakt == ep.IDs.Trakt) ||
				(ep.Title != "" && candidate.Title == ep.Title) {
				item.Season = season.Number
				item.Number = candidate.Number
				return
			}
		}
	}
}

// searchShowID finds a show's lookup ID by title when the history
// payload carried none.
func (u *Updater) searchShowID(ctx context.Context, title string) string {
	if title == "" {
		return ""
	}
	results, err := u.client.SearchShow(ctx, title)
	if err != nil {
		u.logger.Debug().Err(err).Str("show", title).Msg("show search failed")
		return ""
	}
	for _, r := range results {
		if r.Show != nil {
			return traktID(r.Show.IDs)
		}
	}
	return ""
}

func (u *Updater) movieCast(ctx context.Context, ids trakt.IDs) []string {
	id := traktID(ids)
	if id == "" {
		return nil
	}
	people, err := u.client.People(ctx, "movies", id)
	if err != nil {
		u.logger.Debug().Err(err).Str("movie", id).Msg("cast lookup failed")
		return nil
	}
	return topCast(people)
}

// castForShow memoizes show cast across the run.
func (u *Updater) castForShow(ctx context.Context, ids trakt.IDs) []string {
	if ids.Trakt != 0 {
		if cast, ok := u.showCast[ids.Trakt]; ok {
			return cast
		}
	}

	id := traktID(ids)
	if id == "" {
		return nil
	}
	people, err := u.client.People(ctx, "shows", id)
	if err != nil {
		u.logger.Debug().Err(err).Str("show", id).Msg("cast lookup failed")
		return nil
	}

	cast := topCast(people)
	if ids.Trakt != 0 {
		u.showCast[ids.Trakt] = cast
	}
	return cast
}

func topCast(people *trakt.People) []string {
	if people == nil {
		return nil
	}
	names := make([]string, 0, castLimit)
	for _, member := range people.Cast {
		if member.Person.Name == "" {
			continue
		}
		names = append(names, member.Person.Name)
		if len(names) == castLimit {
			break
		}
	}
	return names
}

// movieThumbnail prefers an RPDB poster when a key is configured and
// falls back to the movie's own Trakt artwork.
func (u *Updater) movieThumbnail(m *trakt.Movie) string {
	if t := u.rpdbPoster(m.IDs, "movie"); t != "" {
		return t
	}
	return m.Images.FirstURL()
}

// episodeThumbnail prefers episode-level artwork from the history
// payload, then an RPDB poster for the parent show, then the show's
// own Trakt artwork.
func (u *Updater) episodeThumbnail(ctx context.Context, ep *trakt.Episode, show *trakt.Show) string {
	if t := ep.Images.FirstURL(); t != "" {
		return t
	}

	ids := show.IDs
	if ids.IMDB == "" && ids.TMDB == 0 && ids.TVDB == 0 {
		ids = ep.IDs
	}
	if t := u.rpdbPoster(ids, "series"); t != "" {
		return t
	}

	return u.showArtwork(ctx, show)
}

// rpdbPoster builds the RPDB poster URL from the best available
// external id: IMDB, then TMDB, then TVDB. kind ("movie" or "series")
// qualifies TMDB ids, which are ambiguous on their own. Empty when no
// key or no usable id is available.
func (u *Updater) rpdbPoster(ids trakt.IDs, kind string) string {
	if u.rpdbKey == "" {
		return ""
	}
	switch {
	case ids.IMDB != "":
		return fmt.Sprintf(rpdbPosterURL, u.rpdbKey, "imdb", ids.IMDB)
	case ids.TMDB != 0:
		return fmt.Sprintf(rpdbPosterURL, u.rpdbKey, "tmdb", kind+"-"+strconv.FormatInt(ids.TMDB, 10))
	case ids.TVDB != 0:
		return fmt.Sprintf(rpdbPosterURL, u.rpdbKey, "tvdb", strconv.FormatInt(ids.TVDB, 10))
	default:
		return ""
	}
}

// showArtwork fetches the show summary for its artwork, memoized per
// run. History payloads only carry artwork on episode and movie
// objects, never on the parent show.
func (u *Updater) showArtwork(ctx context.Context, show *trakt.Show) string {
	if show.IDs.Trakt != 0 {
		if cached, ok := u.showDetails[show.IDs.Trakt]; ok {
			if cached == nil {
				return ""
			}
			return cached.Images.FirstURL()
		}
	}

	id := traktID(show.IDs)
	if id == "" {
		return ""
	}
	summary, err := u.client.ShowSummary(ctx, id)
	if err != nil {
		u.logger.Debug().Err(err).Str("show", show.Title).Msg("show summary lookup failed")
		summary = nil
	}
	if show.IDs.Trakt != 0 {
		u.showDetails[show.IDs.Trakt] = summary
	}
	if summary == nil {
		return ""
	}
	return summary.Images.FirstURL()
}

func convertIDs(ids trakt.IDs) models.ItemIDs {
	return models.ItemIDs{
		Trakt: ids.Trakt,
		IMDB:  ids.IMDB,
		TMDB:  ids.TMDB,
		TVDB:  ids.TVDB,
		Slug:  ids.Slug,
	}
}

// traktID picks the best path parameter for a Trakt lookup: numeric
// trakt ID, then slug, then IMDB id.
func traktID(ids trakt.IDs) string {
	switch {
	case ids.Trakt != 0:
		return strconv.FormatInt(ids.Trakt, 10)
	case ids.Slug != "":
		return ids.Slug
	case ids.IMDB != "":
		return ids.IMDB
	default:
		return ""
	}
}
