// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package trakt is the HTTP client for the Trakt.tv API v2.
//
// Every request carries the trakt-api-key and trakt-api-version
// headers, passes a client-side rate limiter, and runs through a
// circuit breaker so a degraded API cannot pile up slow requests in
// the updater.
package trakt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/logging"
)

// apiVersion is the trakt-api-version header value.
const apiVersion = "2"

// maxErrorBodySize caps how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// historyPageSize is the page size used when walking a user's full
// history.
const historyPageSize = 100

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("trakt: not found")

// APIError describes a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trakt: API returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Trakt API on behalf of one authenticated
// application.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	accessToken  string
	httpClient   *http.Client
	limiter      *rate.Limiter
	cb           *gobreaker.CircuitBreaker[[]byte]
	logger       zerolog.Logger
}

// NewClient builds a Client from configuration. accessToken may be
// empty for endpoints that only need the client ID (history of public
// profiles, search, people).
func NewClient(cfg config.TraktConfig, accessToken string) *Client {
	logger := logging.With().Str("component", "trakt-client").Logger()

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "trakt-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		baseURL:      cfg.APIURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accessToken:  accessToken,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:           cb,
		logger:       logger,
	}
}

// get performs a rate-limited, circuit-broken GET and returns the
// response body. Pagination headers, when requested, are copied into
// pageInfo.
func (c *Client) get(ctx context.Context, path string, query url.Values, pageInfo *PageInfo) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("trakt: rate limiter: %w", err)
	}

	return c.cb.Execute(func() ([]byte, error) {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("trakt: building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("trakt-api-version", apiVersion)
		req.Header.Set("trakt-api-key", c.clientID)
		if c.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("trakt: GET %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		if pageInfo != nil {
			pageInfo.Page = headerInt(resp.Header, "X-Pagination-Page")
			pageInfo.PageCount = headerInt(resp.Header, "X-Pagination-Page-Count")
			pageInfo.ItemCount = headerInt(resp.Header, "X-Pagination-Item-Count")
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("trakt: reading response: %w", err)
		}
		return body, nil
	})
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return n
}

// PageInfo mirrors Trakt's pagination response headers.
type PageInfo struct {
	Page      int
	PageCount int
	ItemCount int
}

// History fetches one page of a user's watch history with full
// metadata and artwork.
func (c *Client) History(ctx context.Context, username string, page, limit int) ([]HistoryEntry, PageInfo, error) {
	query := url.Values{}
	query.Set("extended", "full,images")
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var info PageInfo
	body, err := c.get(ctx, "/users/"+url.PathEscape(username)+"/history", query, &info)
	if err != nil {
		return nil, info, err
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, info, fmt.Errorf("trakt: decoding history: %w", err)
	}
	return entries, info, nil
}

// AllHistory walks every history page for a user. maxItems caps the
// total fetched; 0 means unlimited.
func (c *Client) AllHistory(ctx context.Context, username string, maxItems int) ([]HistoryEntry, error) {
	var all []HistoryEntry

	for page := 1; ; page++ {
		entries, info, err := c.History(ctx, username, page, historyPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)

		c.logger.Debug().
			Str("user", username).
			Int("page", page).
			Int("page_count", info.PageCount).
			Int("fetched", len(all)).
			Msg("history page fetched")

		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if len(entries) == 0 || info.PageCount == 0 || page >= info.PageCount {
			return all, nil
		}
	}
}

// Ratings fetches a user's ratings for one media type ("movies",
// "shows" or "episodes").
func (c *Client) Ratings(ctx context.Context, username, mediaType string) ([]RatingEntry, error) {
	body, err := c.get(ctx, "/users/"+url.PathEscape(username)+"/ratings/"+url.PathEscape(mediaType), nil, nil)
	if err != nil {
		return nil, err
	}

	var entries []RatingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("trakt: decoding ratings: %w", err)
	}
	return entries, nil
}

// ShowSeasons fetches a show's seasons with their episode lists.
// showID may be a trakt numeric ID or slug.
func (c *Client) ShowSeasons(ctx context.Context, showID string) ([]Season, error) {
	query := url.Values{}
	query.Set("extended", "episodes")

	body, err := c.get(ctx, "/shows/"+url.PathEscape(showID)+"/seasons", query, nil)
	if err != nil {
		return nil, err
	}

	var seasons []Season
	if err := json.Unmarshal(body, &seasons); err != nil {
		return nil, fmt.Errorf("trakt: decoding seasons: %w", err)
	}
	return seasons, nil
}

// ShowSummary fetches full show metadata (genres, year, runtime) and
// artwork.
func (c *Client) ShowSummary(ctx context.Context, showID string) (*Show, error) {
	query := url.Values{}
	query.Set("extended", "full,images")

	body, err := c.get(ctx, "/shows/"+url.PathEscape(showID), query, nil)
	if err != nil {
		return nil, err
	}

	show := &Show{}
	if err := json.Unmarshal(body, show); err != nil {
		return nil, fmt.Errorf("trakt: decoding show: %w", err)
	}
	return show, nil
}

// SearchShow searches shows by title and returns results by score.
func (c *Client) SearchShow(ctx context.Context, title string) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("query", title)

	body, err := c.get(ctx, "/search/show", query, nil)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("trakt: decoding search results: %w", err)
	}
	return results, nil
}

// People fetches the credits of a movie or show. mediaType is
// "movies" or "shows".
func (c *Client) People(ctx context.Context, mediaType, id string) (*People, error) {
	body, err := c.get(ctx, "/"+url.PathEscape(mediaType)+"/"+url.PathEscape(id)+"/people", nil, nil)
	if err != nil {
		return nil, err
	}

	people := &People{}
	if err := json.Unmarshal(body, people); err != nil {
		return nil, fmt.Errorf("trakt: decoding people: %w", err)
	}
	return people, nil
}
